package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/session"
	"github.com/mgpai22/cuesync/internal/subtitle"
	"github.com/mgpai22/cuesync/internal/transcribe"
)

var draftCmd = &cobra.Command{
	Use:   "draft [media_file]",
	Short: "Draft captions for an audio or video file with AI transcription",
	Long: `Transcribe the given media and write the result as a caption file,
ready to be refined with "cuesync edit".

Audio is extracted with ffmpeg, split into chunks and transcribed in parallel.
Long transcript segments are split into readable captions.

Examples:
  cuesync draft talk.mp4
  cuesync draft podcast.mp3 -f vtt --chunk-minutes 2 --concurrency 5
  cuesync draft talk.mp4 --provider openai --transcript-language english`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func init() {
	rootCmd.AddCommand(draftCmd)

	draftCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY env var)")
	draftCmd.Flags().
		String("provider", "", "Transcription provider (gemini, openai)")
	draftCmd.Flags().
		String("model", "", "Model to use for transcription (provider default when empty)")
	draftCmd.Flags().
		StringP("format", "f", "", "Output subtitle format (srt, vtt, ass)")
	draftCmd.Flags().
		IntP("chunk-minutes", "d", 0, "Chunk duration in minutes for splitting audio")
	draftCmd.Flags().
		Int("concurrency", 0, "Number of parallel transcription workers")
	draftCmd.Flags().
		StringP("language", "l", "", "Language spoken in the media (e.g., en, es, fr)")
	draftCmd.Flags().
		String("transcript-language", "", "Output language for transcript (e.g., 'english', or 'native' for original language)")
}

func runDraft(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fileExists(mediaPath); err != nil {
		return err
	}
	if !media.IsMediaFile(mediaPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	provider, err := transcribe.ParseProvider(stringFlag(cmd, "provider", cfg.Transcribe.Provider))
	if err != nil {
		return err
	}
	key, err := apiKey(cmd, string(provider))
	if err != nil {
		return err
	}

	transcriptLang := stringFlag(cmd, "transcript-language", cfg.Transcribe.TranscriptLanguage)
	if provider == transcribe.ProviderOpenAI && !isValidOpenAITranscriptLanguage(transcriptLang) {
		return fmt.Errorf(
			"OpenAI can only transcribe in the native language or translate to English, got %q",
			transcriptLang,
		)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	format, err := outputFormat(cmd, outputPath)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + subtitle.ExtensionFor(format)
	}

	chunkMinutes := intFlag(cmd, "chunk-minutes", cfg.Transcribe.ChunkMinutes)
	concurrency := intFlag(cmd, "concurrency", cfg.Transcribe.Concurrency)
	if chunkMinutes <= 0 {
		return fmt.Errorf("chunk-minutes must be positive, got %d", chunkMinutes)
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	transcriber, err := transcribe.Factory(ctx, provider, key, transcribe.Options{
		Language:           stringFlag(cmd, "language", cfg.Transcribe.Language),
		TranscriptLanguage: transcriptLang,
		Model:              stringFlag(cmd, "model", cfg.Transcribe.Model),
	})
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	logger.Infow("Starting caption draft",
		"input", mediaPath,
		"output", outputPath,
		"provider", provider,
		"format", format,
		"chunk_minutes", chunkMinutes,
		"concurrency", concurrency,
	)

	sess := newSession(logger, nil)
	defer sess.Close()

	if err := sess.Load(ctx, mediaPath); err != nil {
		return err
	}

	n, err := sess.Draft(ctx, transcriber, subtitle.NewSegmenter(), session.DraftOptions{
		ChunkSize:   time.Duration(chunkMinutes) * time.Minute,
		Concurrency: concurrency,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transcription produced no captions")
	}

	if err := sess.ExportFile(outputPath, format); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Captions drafted successfully: %s\n", absOutput)
	fmt.Printf("  Captions: %d\n", n)
	fmt.Printf("  Format: %s\n", format)
	return nil
}

// whisper only transcribes natively or translates into English
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	default:
		return false
	}
}
