package subtitle

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Segment is a timed span of recognised speech, as returned by a
// transcription provider.
type Segment struct {
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// Segmenter turns raw transcription segments into entries short enough to
// read on screen.
type Segmenter struct {
	MaxCharsPerLine int
	MaxLines        int
	MinDuration     time.Duration
	MaxDuration     time.Duration
}

func NewSegmenter() *Segmenter {
	return &Segmenter{
		MaxCharsPerLine: 42,
		MaxLines:        2,
		MinDuration:     time.Second,
		MaxDuration:     7 * time.Second,
	}
}

// Split returns entries numbered from 1. Blank segments are dropped. A
// segment is cut into chunks when its text exceeds the on-screen limit or
// its span exceeds MaxDuration; chunk timing is proportional to chunk length.
func (s *Segmenter) Split(segments []Segment) []Entry {
	var entries []Entry
	for i, seg := range segments {
		words := strings.Fields(seg.Text)
		if len(words) == 0 || seg.EndTime <= seg.StartTime {
			continue
		}

		limit := seg.EndTime
		if i+1 < len(segments) && segments[i+1].StartTime > seg.EndTime {
			limit = segments[i+1].StartTime
		}

		chunks := s.chunk(words, seg.EndTime-seg.StartTime)
		total := 0
		for _, c := range chunks {
			total += utf8.RuneCountInString(c)
		}

		span := seg.EndTime - seg.StartTime
		start := seg.StartTime
		used := 0
		for j, c := range chunks {
			used += utf8.RuneCountInString(c)
			end := seg.StartTime + time.Duration(int64(span)*int64(used)/int64(total))
			if j == len(chunks)-1 {
				end = seg.EndTime
				// a short trailing cue may borrow the silence before the next segment
				if end-start < s.MinDuration {
					end = min(start+s.MinDuration, limit)
				}
			}
			entries = append(entries, Entry{
				Index:     len(entries) + 1,
				StartTime: start,
				EndTime:   end,
				Text:      s.wrap(c),
			})
			start = end
		}
	}
	return entries
}

// chunk packs words greedily under the per-entry character limit, then
// re-splits evenly if the span still needs more entries than that gives.
func (s *Segmenter) chunk(words []string, span time.Duration) []string {
	maxChars := s.MaxCharsPerLine * max(s.MaxLines, 1)

	var chunks []string
	var cur []string
	curLen := 0
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if len(cur) > 0 && curLen+1+n > maxChars {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, w)
		curLen += n
	}
	chunks = append(chunks, strings.Join(cur, " "))

	if s.MaxDuration <= 0 {
		return chunks
	}
	want := int((span + s.MaxDuration - 1) / s.MaxDuration)
	if want <= len(chunks) {
		return chunks
	}
	want = min(want, len(words))

	even := make([]string, 0, want)
	per := (len(words) + want - 1) / want
	for len(words) > 0 {
		n := min(per, len(words))
		even = append(even, strings.Join(words[:n], " "))
		words = words[n:]
	}
	return even
}

// wrap breaks text over two lines at the word boundary nearest the middle.
func (s *Segmenter) wrap(text string) string {
	runes := utf8.RuneCountInString(text)
	if s.MaxLines < 2 || runes <= s.MaxCharsPerLine {
		return text
	}

	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	middle := runes / 2
	best, bestDiff := 0, runes
	pos := 0
	for i, w := range words[:len(words)-1] {
		if i > 0 {
			pos++
		}
		pos += utf8.RuneCountInString(w)
		diff := pos - middle
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i+1, diff
		}
	}
	return strings.Join(words[:best], " ") + "\n" + strings.Join(words[best:], " ")
}
