package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/config"
	"github.com/mgpai22/cuesync/internal/logging"
	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/session"
)

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cuesync",
	Short: "Timed caption editor synchronized to media playback",
	Long: `Cuesync edits timed captions against a media file's playback clock.

Captions are added, edited and removed while the media plays; the caption
active at the current position is pushed to overlay renderers over HTTP.
Captions can be drafted by AI transcription, translated, converted between
SRT, VTT and ASS, and burned into video.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)
		c, err := config.Load(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}

// newSession builds a session wired to the configured ffmpeg binaries. When
// they cannot be found the session still edits captions but cannot load media.
func newSession(log *logging.Logger, m *metrics.Metrics) *session.Session {
	opts := session.Options{
		Logger:  log,
		Metrics: m,
		Tick:    cfg.TickInterval(),
		Rate:    cfg.Clock.Rate,
	}
	bins, err := media.Resolve(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	if err != nil {
		log.Warnw("Media tools unavailable, media cannot be loaded", "error", err)
		return session.New(opts)
	}
	opts.Prober = bins.Prober()
	opts.Tools = bins
	return session.New(opts)
}

func stringFlag(cmd *cobra.Command, name, fallback string) string {
	v, _ := cmd.Flags().GetString(name)
	if !cmd.Flags().Changed(name) && fallback != "" {
		return fallback
	}
	return v
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	v, _ := cmd.Flags().GetInt(name)
	if !cmd.Flags().Changed(name) && fallback > 0 {
		return fallback
	}
	return v
}

func apiKey(cmd *cobra.Command, provider string) (string, error) {
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		return key, nil
	}
	return cfg.APIKey(provider)
}

func fileExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	return nil
}
