package subtitle

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestSplitShortSegment(t *testing.T) {
	s := NewSegmenter()
	entries := s.Split([]Segment{
		{StartTime: 0, EndTime: 2 * time.Second, Text: "  hello world "},
		{StartTime: 2 * time.Second, EndTime: 3 * time.Second, Text: "   "},
	})

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "hello world" {
		t.Errorf("got %q", entries[0].Text)
	}
	if entries[0].Index != 1 || entries[0].EndTime != 2*time.Second {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestSplitLongText(t *testing.T) {
	s := NewSegmenter()
	text := strings.Repeat("caption ", 30)
	entries := s.Split([]Segment{{StartTime: time.Second, EndTime: 7 * time.Second, Text: text}})

	if len(entries) < 2 {
		t.Fatalf("expected split, got %d entries", len(entries))
	}

	prevEnd := time.Second
	for i, e := range entries {
		if e.StartTime != prevEnd {
			t.Errorf("entry %d: start %v does not follow %v", i, e.StartTime, prevEnd)
		}
		if e.Index != i+1 {
			t.Errorf("entry %d: index %d", i, e.Index)
		}
		for _, l := range strings.Split(e.Text, "\n") {
			if utf8.RuneCountInString(l) > s.MaxCharsPerLine {
				t.Errorf("entry %d: line too long %q", i, l)
			}
		}
		prevEnd = e.EndTime
	}
	if prevEnd != 7*time.Second {
		t.Errorf("last entry should end at segment end, got %v", prevEnd)
	}
}

func TestSplitLongDuration(t *testing.T) {
	s := NewSegmenter()
	entries := s.Split([]Segment{{StartTime: 0, EndTime: 20 * time.Second, Text: "one two three four five six"}})

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].EndTime != 20*time.Second {
		t.Errorf("got end %v", entries[2].EndTime)
	}
}

func TestSplitMinDuration(t *testing.T) {
	s := NewSegmenter()
	entries := s.Split([]Segment{
		{StartTime: 0, EndTime: 300 * time.Millisecond, Text: "hi"},
		{StartTime: 600 * time.Millisecond, EndTime: 3 * time.Second, Text: "there"},
	})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EndTime != 600*time.Millisecond {
		t.Errorf("short cue should extend up to next segment, got %v", entries[0].EndTime)
	}
}

func TestWrap(t *testing.T) {
	s := &Segmenter{MaxCharsPerLine: 10, MaxLines: 2}
	tests := []struct {
		in, want string
	}{
		{"short", "short"},
		{"one two three four", "one two\nthree four"},
		{"unbreakablelongword", "unbreakablelongword"},
	}

	for _, tt := range tests {
		if got := s.wrap(tt.in); got != tt.want {
			t.Errorf("wrap(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
