package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/playback"
	"github.com/mgpai22/cuesync/internal/server"
	"github.com/mgpai22/cuesync/internal/session"
	"github.com/mgpai22/cuesync/internal/subtitle"
)

var editCmd = &cobra.Command{
	Use:   "edit [media_file]",
	Short: "Edit captions interactively against media playback",
	Long: `Open an interactive caption editor. The optional media file is loaded
first; use "help" at the prompt for the command list.

The time arguments of add accept seconds or "now" for the current position.
With --serve the overlay server runs alongside the editor so a browser
overlay follows the active caption.

Examples:
  cuesync edit talk.mp4
  cuesync edit talk.mp4 --import talk.srt --serve`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().String("import", "", "Subtitle file to import on start")
	editCmd.Flags().Bool("serve", false, "Run the overlay server alongside the editor")
	editCmd.Flags().String("listen", "", "Overlay server listen address (default from config)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serve, _ := cmd.Flags().GetBool("serve")
	importPath, _ := cmd.Flags().GetString("import")

	var m *metrics.Metrics
	if serve {
		m = metrics.New()
	}
	sess := newSession(logger, m)
	defer sess.Close()

	if len(args) == 1 {
		if err := sess.Load(ctx, args[0]); err != nil {
			return err
		}
	}
	if importPath != "" {
		if _, err := sess.Import(importPath); err != nil {
			return fmt.Errorf("failed to import captions: %w", err)
		}
	}

	if serve {
		srv := server.New(server.Options{
			Addr:    stringFlag(cmd, "listen", cfg.Server.Listen),
			Session: sess,
			Logger:  logger,
			Metrics: m,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Errorw("Overlay server stopped", "error", err)
			}
		}()
	}

	r := newREPL(sess, os.Stdin, os.Stdout)
	r.interactive = isTerminal(os.Stdin)
	defer r.follow()()
	return r.run(ctx)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var errQuit = errors.New("quit")

// repl is the line-oriented caption editor.
type repl struct {
	sess        *session.Session
	in          *bufio.Scanner
	interactive bool

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

func newREPL(sess *session.Session, in io.Reader, out io.Writer) *repl {
	return &repl{sess: sess, in: bufio.NewScanner(in), out: out}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// follow prints the active caption whenever it changes during playback.
// The returned func stops following.
func (r *repl) follow() func() {
	var last caption.ID
	var lastMu sync.Mutex
	return r.sess.Subscribe(func(st playback.State) {
		var id caption.ID
		if st.Active != nil {
			id = st.Active.ID
		}
		lastMu.Lock()
		changed := id != last
		last = id
		lastMu.Unlock()
		if changed && st.IsPlaying && st.Active != nil {
			r.printf("\n[%s] %s\n", playback.FormatTime(st.CurrentTime), st.Active.Text)
		}
	})
}

func (r *repl) run(ctx context.Context) error {
	for {
		if r.interactive {
			r.printf("> ")
		}
		if !r.in.Scan() {
			return r.in.Err()
		}
		err := r.exec(ctx, r.in.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			r.printf("error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		r.printf("%s", replHelp)
	case "quit", "exit", "q":
		return errQuit
	case "load":
		if len(args) != 1 {
			return usage("load <media_file>")
		}
		if err := r.sess.Load(ctx, args[0]); err != nil {
			return err
		}
		m, _ := r.sess.Media()
		r.printf("loaded %s (%s)\n", m.Name, playback.FormatTime(m.Info.Seconds()))
	case "import":
		if len(args) != 1 {
			return usage("import <subtitle_file>")
		}
		n, err := r.sess.Import(args[0])
		if err != nil {
			return err
		}
		r.printf("imported %d captions\n", n)
	case "export":
		return r.export(args)
	case "add":
		return r.add(args)
	case "edit":
		if len(args) < 2 {
			return usage("edit <id> <text>")
		}
		c, err := r.sess.Update(caption.ID(args[0]), strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		r.printf("updated %s\n", c.ID)
	case "rm":
		if len(args) != 1 {
			return usage("rm <id>")
		}
		r.sess.Remove(caption.ID(args[0]))
	case "ls":
		r.list()
	case "seek":
		if len(args) != 1 {
			return usage("seek <seconds>")
		}
		t, err := caption.ParseSeconds("time", args[0])
		if err != nil {
			return err
		}
		if err := r.sess.Seek(t); err != nil {
			return err
		}
		r.status()
	case "play":
		return r.sess.Play(ctx)
	case "pause":
		if err := r.sess.Pause(); err != nil {
			return err
		}
		r.status()
	case "toggle":
		return r.sess.Toggle(ctx)
	case "jump":
		if len(args) != 1 {
			return usage("jump <id>")
		}
		if err := r.sess.JumpTo(caption.ID(args[0])); err != nil {
			return err
		}
		r.status()
	case "mark":
		r.printf("%s\n", formatSeconds(r.sess.Mark()))
	case "status":
		r.status()
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", cmd)
	}
	return nil
}

func (r *repl) add(args []string) error {
	if len(args) < 3 {
		return usage("add <start|now> <end|now> <text>")
	}
	start, end := r.resolveTime(args[0]), r.resolveTime(args[1])
	c, err := r.sess.Add(strings.Join(args[2:], " "), start, end)
	if err != nil {
		return err
	}
	r.printf("added %s [%s - %s]\n", c.ID, formatSeconds(c.StartTime), formatSeconds(c.EndTime))
	return nil
}

func (r *repl) resolveTime(arg string) string {
	if strings.EqualFold(arg, "now") {
		return formatSeconds(r.sess.Mark())
	}
	return arg
}

func (r *repl) export(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("export <file> [srt|vtt|ass]")
	}
	path := args[0]
	var format subtitle.Format
	var err error
	if len(args) == 2 {
		format, err = subtitle.ParseFormat(args[1])
	} else {
		format, err = subtitle.FormatFromExtension(path)
	}
	if err != nil {
		return err
	}
	if err := r.sess.ExportFile(path, format); err != nil {
		return err
	}
	r.printf("wrote %d captions to %s\n", r.sess.Len(), filepath.Clean(path))
	return nil
}

func (r *repl) list() {
	captions := r.sess.List()
	if len(captions) == 0 {
		r.printf("no captions\n")
		return
	}

	active := r.sess.State().Active

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"", "ID", "Start", "End", "Text"})
	for _, c := range captions {
		marker := ""
		if active != nil && active.ID == c.ID {
			marker = "*"
		}
		tw.AppendRow(table.Row{
			marker,
			c.ID,
			playback.FormatTime(c.StartTime),
			playback.FormatTime(c.EndTime),
			strings.ReplaceAll(c.Text, "\n", " / "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	r.printf("%s\n", tw.Render())
}

func (r *repl) status() {
	st := r.sess.State()
	mode := "paused"
	if st.IsPlaying {
		mode = "playing"
	}
	line := fmt.Sprintf("%s / %s %s",
		playback.FormatTime(st.CurrentTime),
		playback.FormatTime(st.Duration),
		mode,
	)
	if st.Active != nil {
		line += fmt.Sprintf(" | %s: %s", st.Active.ID, strings.ReplaceAll(st.Active.Text, "\n", " / "))
	}
	r.printf("%s\n", line)
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const replHelp = `Commands:
  load <media>                  load media and start a new session
  import <file>                 add captions from an SRT, VTT or ASS file
  export <file> [format]        write captions (format from extension)
  add <start> <end> <text>      add a caption; times in seconds or "now"
  edit <id> <text>              replace a caption's text
  rm <id>                       remove a caption
  ls                            list captions (* marks the active one)
  seek <seconds>                move the playback position
  play | pause | toggle         control playback
  jump <id>                     seek to a caption's start
  mark                          print the current position for use as a time
  status                        show position and active caption
  quit                          leave the editor
`
