package subtitle

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/mgpai22/cuesync/internal/caption"
)

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   Format
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "ass", "ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q: use srt, vtt, or ass", s)
	}
}

// subtitle format based on file extension
func FormatFromExtension(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("cannot infer subtitle format from %q", path)
	}
	return ParseFormat(ext)
}

// file extension for a format
func ExtensionFor(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

// FromCaptions builds a track from an ordered caption list. Indices are
// 1-based in list order.
func FromCaptions(captions []caption.Caption) *Subtitle {
	entries := make([]Entry, len(captions))
	for i, c := range captions {
		entries[i] = Entry{
			Index:     i + 1,
			StartTime: Seconds(c.StartTime),
			EndTime:   Seconds(c.EndTime),
			Text:      c.Text,
		}
	}
	return &Subtitle{Entries: entries}
}

// Seconds converts fractional seconds to a millisecond-rounded duration.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
