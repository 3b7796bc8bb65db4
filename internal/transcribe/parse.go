package transcribe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mgpai22/cuesync/internal/subtitle"
)

var codeFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// segment as returned by the model, times in seconds
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// removes markdown code fences from a model response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = codeFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractTranscriptSegments pulls a segment array out of a model response.
// It accepts a bare array, an array surrounded by prose, or an object
// wrapping the array under a "segments" or "transcript" key.
func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	s = cleanJSONResponse(s)

	var segs []transcriptSegment
	if err := json.Unmarshal([]byte(s), &segs); err == nil && validateSegments(segs) {
		return segs, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil {
		for _, key := range []string{"segments", "transcript", "results"} {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &segs); err == nil && validateSegments(segs) {
				return segs, nil
			}
		}
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &segs); err == nil && validateSegments(segs) {
			return segs, nil
		}
	}

	return nil, fmt.Errorf("no transcript segments found in response: %s", truncateString(s, 200))
}

// reports whether at least one segment carries data
func validateSegments(segs []transcriptSegment) bool {
	for _, s := range segs {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// converts model segments, dropping blank ones
func toSegments(segs []transcriptSegment) []subtitle.Segment {
	out := make([]subtitle.Segment, 0, len(segs))
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out = append(out, subtitle.Segment{
			StartTime: seconds(s.Start),
			EndTime:   seconds(s.End),
			Text:      text,
		})
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
