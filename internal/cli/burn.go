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

	"github.com/mgpai22/cuesync/internal/subtitle"
)

var burnCmd = &cobra.Command{
	Use:   "burn [video_file] [subtitle_file]",
	Short: "Burn captions into a copy of a video",
	Long: `Render captions permanently into the video frames with ffmpeg. The
audio stream is copied unchanged.

Examples:
  cuesync burn talk.mp4 talk.srt
  cuesync burn talk.mp4 talk.ja.srt -o talk.ja.mp4 --style srt`,
	Args: cobra.ExactArgs(2),
	RunE: runBurn,
}

func init() {
	rootCmd.AddCommand(burnCmd)

	burnCmd.Flags().
		String("style", "ass", "Intermediate subtitle format passed to ffmpeg (ass keeps the default font styling)")
}

func runBurn(cmd *cobra.Command, args []string) error {
	videoPath, subtitlePath := args[0], args[1]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, p := range args {
		if err := fileExists(p); err != nil {
			return err
		}
	}

	style, _ := cmd.Flags().GetString("style")
	format, err := subtitle.ParseFormat(style)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		ext := filepath.Ext(videoPath)
		outputPath = strings.TrimSuffix(videoPath, ext) + ".captioned" + ext
	}

	sess := newSession(logger, nil)
	defer sess.Close()

	if err := sess.Load(ctx, videoPath); err != nil {
		return err
	}
	n, err := sess.Import(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	logger.Infow("Burning captions into video",
		"input", videoPath,
		"captions", n,
		"output", outputPath,
	)
	if err := sess.BurnIn(ctx, outputPath, format); err != nil {
		return fmt.Errorf("failed to burn in captions: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Captions burned in successfully: %s\n", absOutput)
	return nil
}
