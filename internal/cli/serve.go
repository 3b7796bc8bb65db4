package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/logging"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [media_file]",
	Short: "Serve the caption session to overlay renderers",
	Long: `Run the overlay server. Renderers subscribe to /api/events for the
active caption; the session can be edited and controlled over the HTTP API.
Prometheus metrics are exposed at /metrics.

Examples:
  cuesync serve talk.mp4 --import talk.srt
  cuesync serve --listen 0.0.0.0:8750`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("import", "", "Subtitle file to import on start")
	serveCmd.Flags().String("listen", "", "Listen address (default from config)")
	serveCmd.Flags().String("log-level", "", "JSON log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logging.JSON(stringFlag(cmd, "log-level", cfg.Server.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer log.Sync()

	m := metrics.New()
	sess := newSession(log, m)
	defer sess.Close()

	if len(args) == 1 {
		if err := sess.Load(ctx, args[0]); err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("import"); path != "" {
		if _, err := sess.Import(path); err != nil {
			return fmt.Errorf("failed to import captions: %w", err)
		}
	}

	srv := server.New(server.Options{
		Addr:    stringFlag(cmd, "listen", cfg.Server.Listen),
		Session: sess,
		Logger:  log,
		Metrics: m,
	})
	return srv.Run(ctx)
}
