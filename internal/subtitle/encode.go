package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// serialises a track to a subtitle exchange format
type Encoder interface {
	Encode(w io.Writer, sub *Subtitle) error
}

// SubRip format
type SRTEncoder struct{}

// WebVTT format
type VTTEncoder struct{}

// Advanced SubStation Alpha format
type ASSEncoder struct {
	Title    string
	FontName string
	FontSize int
}

func NewEncoder(format Format) (Encoder, error) {
	switch format {
	case FormatSRT:
		return SRTEncoder{}, nil
	case FormatVTT:
		return VTTEncoder{}, nil
	case FormatASS:
		return ASSEncoder{
			Title:    "cuesync captions",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (SRTEncoder) Encode(w io.Writer, sub *Subtitle) error {
	bw := bufio.NewWriter(w)
	for i, entry := range sub.Entries {
		// 00:00:00,000 --> 00:00:00,000
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			clockStamp(entry.StartTime, ','),
			clockStamp(entry.EndTime, ','),
			entry.Text,
		)
	}
	return bw.Flush()
}

func (VTTEncoder) Encode(w io.Writer, sub *Subtitle) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for i, entry := range sub.Entries {
		// cue identifier is optional in VTT but keeps indices stable
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			clockStamp(entry.StartTime, '.'),
			clockStamp(entry.EndTime, '.'),
			entry.Text,
		)
	}
	return bw.Flush()
}

func (e ASSEncoder) Encode(w io.Writer, sub *Subtitle) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "[Script Info]\nTitle: %s\nScriptType: v4.00+\nCollisions: Normal\nPlayDepth: 0\n\n", e.Title)

	bw.WriteString("[V4+ Styles]\n")
	bw.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		e.FontName, e.FontSize)

	bw.WriteString("[Events]\n")
	bw.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, entry := range sub.Entries {
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assStamp(entry.StartTime),
			assStamp(entry.EndTime),
			strings.ReplaceAll(entry.Text, "\n", "\\N"),
		)
	}

	return bw.Flush()
}

// WriteFile encodes sub in the given format to path, creating parent
// directories as needed.
func WriteFile(path string, sub *Subtitle, format Format) error {
	enc, err := NewEncoder(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}
	if err := enc.Encode(f, sub); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return f.Close()
}

// HH:MM:SS<sep>mmm
func clockStamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d%c%03d",
		ms/3_600_000,
		ms/60_000%60,
		ms/1000%60,
		sep,
		ms%1000,
	)
}

// H:MM:SS.cc
func assStamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d.Milliseconds() / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d",
		cs/360_000,
		cs/6000%60,
		cs/100%60,
		cs%100,
	)
}
