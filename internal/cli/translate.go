package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/session"
	"github.com/mgpai22/cuesync/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate captions to another language using AI",
	Long: `Translate an existing subtitle file to another language using AI.

Supports SRT, VTT, and ASS/SSA input; the output keeps the input format
unless --output names another extension.

The --overlay flag creates bilingual captions with the translated text
first, followed by the original text on the next line.

Examples:
  cuesync translate talk.srt --target-language japanese
  cuesync translate talk.ass --target-language ja --overlay
  cuesync translate talk.vtt -l english -t spanish --provider anthropic -o talk.es.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		StringP("language", "l", "", "Language of the input captions")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual captions)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY env var)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing provider model validation")
	translateCmd.Flags().
		String("provider", "", "Translation provider (gemini, openai, anthropic)")
	translateCmd.Flags().
		Int("concurrency", 0, "Number of parallel translation workers")
	translateCmd.Flags().
		Int("batch-size", 0, "Number of captions per API request")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fileExists(subtitlePath); err != nil {
		return err
	}

	targetLang, _ := cmd.Flags().GetString("target-language")
	inputLang, _ := cmd.Flags().GetString("language")
	overlay, _ := cmd.Flags().GetBool("overlay")
	modelOverride, _ := cmd.Flags().GetBool("model-override")
	outputPath, _ := cmd.Flags().GetString("output")

	provider, err := translate.ParseProvider(stringFlag(cmd, "provider", cfg.Translate.Provider))
	if err != nil {
		return err
	}
	model := stringFlag(cmd, "model", cfg.Translate.Model)
	if !modelOverride {
		if err := translate.ValidateModel(provider, model); err != nil {
			return err
		}
	}
	key, err := apiKey(cmd, string(provider))
	if err != nil {
		return err
	}

	concurrency := intFlag(cmd, "concurrency", cfg.Translate.Concurrency)
	batchSize := intFlag(cmd, "batch-size", cfg.Translate.BatchSize)
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	if outputPath == "" {
		outputPath = translatedPath(subtitlePath, targetLang, overlay)
	}
	format, err := outputFormat(cmd, outputPath)
	if err != nil {
		return err
	}

	translator, err := translate.Factory(ctx, provider, key, translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
		BatchSize:      batchSize,
		Concurrency:    concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	logger.Infow("Starting caption translation",
		"input", subtitlePath,
		"output", outputPath,
		"provider", provider,
		"target_language", targetLang,
		"input_language", inputLang,
		"overlay", overlay,
	)

	sess := session.New(session.Options{Logger: logger})
	defer sess.Close()

	n, err := sess.Import(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	updated, err := sess.Translate(ctx, translator, overlay)
	if err != nil {
		return err
	}
	if err := sess.ExportFile(outputPath, format); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Captions translated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d (%d translated)\n", n, updated)
	fmt.Printf("  Target language: %s\n", targetLang)
	if overlay {
		fmt.Printf("  Mode: bilingual overlay\n")
	}
	return nil
}

// talk.srt -> talk.ja.srt, or talk.ja.overlay.srt with overlay
func translatedPath(path, target string, overlay bool) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, target, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, target, ext)
}
