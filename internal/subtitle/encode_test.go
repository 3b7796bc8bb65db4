package subtitle

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/cuesync/internal/caption"
)

func sampleTrack() *Subtitle {
	return FromCaptions([]caption.Caption{
		{ID: "1", Text: "Hello", StartTime: 1.5, EndTime: 3},
		{ID: "2", Text: "two\nlines", StartTime: 3661.25, EndTime: 3662},
	})
}

func TestEncodeSRT(t *testing.T) {
	var buf bytes.Buffer
	if err := (SRTEncoder{}).Encode(&buf, sampleTrack()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "1\n00:00:01,500 --> 00:00:03,000\nHello\n\n" +
		"2\n01:01:01,250 --> 01:01:02,000\ntwo\nlines\n\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestEncodeVTT(t *testing.T) {
	var buf bytes.Buffer
	if err := (VTTEncoder{}).Encode(&buf, sampleTrack()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Errorf("missing WEBVTT header: %q", out)
	}
	if !strings.Contains(out, "00:00:01.500 --> 00:00:03.000") {
		t.Errorf("expected dot separated timestamps, got %q", out)
	}
}

func TestEncodeASS(t *testing.T) {
	enc, err := NewEncoder(FormatASS)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, sampleTrack()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[Script Info]",
		"[Events]",
		"Dialogue: 0,0:00:01.50,0:00:03.00,Default,,0,0,0,,Hello",
		`Dialogue: 0,1:01:01.25,1:01:02.00,Default,,0,0,0,,two\Nlines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatSRT, FormatVTT, FormatASS} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "out"+ExtensionFor(format))
			if err := WriteFile(path, sampleTrack(), format); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			sub, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if len(sub.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(sub.Entries))
			}
			if sub.Entries[1].Text != "two\nlines" {
				t.Errorf("got %q", sub.Entries[1].Text)
			}
			if sub.Entries[0].StartTime != 1500*time.Millisecond {
				t.Errorf("got start %v", sub.Entries[0].StartTime)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"srt", FormatSRT, false},
		{".VTT", FormatVTT, false},
		{"webvtt", FormatVTT, false},
		{"ssa", FormatASS, false},
		{"txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(1.2346); got != 1235*time.Millisecond {
		t.Errorf("Seconds(1.2346) = %v", got)
	}
}
