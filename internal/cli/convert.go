package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/session"
	"github.com/mgpai22/cuesync/internal/subtitle"
)

var convertCmd = &cobra.Command{
	Use:   "convert [subtitle_file]",
	Short: "Convert a subtitle file between SRT, VTT and ASS",
	Long: `Convert a subtitle file to another format. Cues with invalid timing
or empty text are dropped and reported.

Examples:
  cuesync convert talk.srt -f vtt
  cuesync convert talk.vtt -o talk.ass`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("format", "f", "", "Output format (srt, vtt, ass); default from output extension or config")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if err := fileExists(inputPath); err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	format, err := outputFormat(cmd, outputPath)
	if err != nil {
		return err
	}
	if outputPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputPath = base + subtitle.ExtensionFor(format)
		if outputPath == inputPath {
			return fmt.Errorf("output would overwrite input; use --output")
		}
	}

	sess := session.New(session.Options{Logger: logger})
	defer sess.Close()

	n, err := sess.Import(inputPath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subtitle file contains no valid entries")
	}
	if err := sess.ExportFile(outputPath, format); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles converted successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", n)
	return nil
}

// outputFormat picks the --format flag, then the output extension, then the
// configured default.
func outputFormat(cmd *cobra.Command, outputPath string) (subtitle.Format, error) {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return subtitle.ParseFormat(f)
	}
	if outputPath != "" {
		if f, err := subtitle.FormatFromExtension(outputPath); err == nil {
			return f, nil
		}
	}
	return subtitle.ParseFormat(cfg.Format)
}
