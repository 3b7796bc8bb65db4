package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	cueTimingRegex = regexp.MustCompile(
		`^\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`,
	)
	assOverrideRegex = regexp.MustCompile(`\{[^}]*\}`)
)

// Open reads a subtitle file, picking the decoder from its extension.
func Open(path string) (*Subtitle, error) {
	format, err := FormatFromExtension(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sub, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sub, nil
}

func Decode(r io.Reader, format Format) (*Subtitle, error) {
	var (
		entries []Entry
		err     error
	)
	switch format {
	case FormatSRT, FormatVTT:
		entries, err = decodeCues(r)
	case FormatASS:
		entries, err = decodeASS(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return &Subtitle{Entries: entries, Format: format}, nil
}

type line struct {
	num  int
	text string
}

func readLines(r io.Reader) ([]line, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if n == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		lines = append(lines, line{num: n, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitle data: %w", err)
	}
	return lines, nil
}

// decodeCues handles SRT and WebVTT: blank-line separated blocks with an
// optional identifier line, a timing line and one or more text lines.
func decodeCues(r io.Reader) ([]Entry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var block []line
	flush := func() error {
		defer func() { block = block[:0] }()
		if len(block) == 0 {
			return nil
		}
		first := strings.TrimSpace(block[0].text)
		if strings.HasPrefix(first, "WEBVTT") ||
			strings.HasPrefix(first, "NOTE") ||
			strings.HasPrefix(first, "STYLE") ||
			strings.HasPrefix(first, "REGION") {
			return nil
		}

		timing := -1
		for i, l := range block {
			if strings.Contains(l.text, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			return nil
		}

		m := cueTimingRegex.FindStringSubmatch(block[timing].text)
		if m == nil {
			return fmt.Errorf("invalid cue timing at line %d", block[timing].num)
		}
		start, err := parseClock(m[1])
		if err != nil {
			return fmt.Errorf("invalid start timestamp at line %d: %w", block[timing].num, err)
		}
		end, err := parseClock(m[2])
		if err != nil {
			return fmt.Errorf("invalid end timestamp at line %d: %w", block[timing].num, err)
		}

		text := make([]string, 0, len(block)-timing-1)
		for _, l := range block[timing+1:] {
			text = append(text, l.text)
		}

		entries = append(entries, Entry{
			Index:     len(entries) + 1,
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(text, "\n"),
		})
		return nil
	}

	for _, l := range lines {
		if strings.TrimSpace(l.text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, l)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return entries, nil
}

// parses [HH:]MM:SS(.|,)mmm
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	sep := strings.LastIndexAny(s, ".,")
	if sep < 0 {
		return 0, fmt.Errorf("missing fraction in %q", s)
	}
	frac := s[sep+1:]
	if !isDigits(frac) {
		return 0, fmt.Errorf("bad fraction in %q", s)
	}
	// milliseconds: extra digits are truncated, short fractions padded
	frac = (frac + "00")[:3]
	ms, _ := strconv.Atoi(frac)

	parts := strings.Split(s[:sep], ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	var total time.Duration
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := range parts {
		field := parts[len(parts)-1-i]
		if !isDigits(field) {
			return 0, fmt.Errorf("bad clock %q", s)
		}
		v, _ := strconv.Atoi(field)
		total += time.Duration(v) * units[i]
	}
	return total + time.Duration(ms)*time.Millisecond, nil
}

// decodeASS extracts Dialogue events from an ASS/SSA script. Override tags
// are dropped and \N breaks become newlines.
func decodeASS(r io.Reader) ([]Entry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var (
		entries  []Entry
		inEvents bool
		columns  []string
		startCol = -1
		endCol   = -1
		textCol  = -1
	)

	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inEvents = strings.EqualFold(trimmed, "[events]")
			continue
		}
		if !inEvents {
			continue
		}

		if rest, ok := strings.CutPrefix(trimmed, "Format:"); ok {
			columns = strings.Split(rest, ",")
			for i := range columns {
				columns[i] = strings.TrimSpace(columns[i])
				switch strings.ToLower(columns[i]) {
				case "start":
					startCol = i
				case "end":
					endCol = i
				case "text":
					textCol = i
				}
			}
			if startCol < 0 || endCol < 0 || textCol < 0 {
				return nil, fmt.Errorf("ASS Format line at line %d lacks Start, End or Text", l.num)
			}
			continue
		}

		rest, ok := strings.CutPrefix(trimmed, "Dialogue:")
		if !ok {
			continue
		}
		if columns == nil {
			return nil, fmt.Errorf("ASS Dialogue before Format line at line %d", l.num)
		}

		fields := strings.SplitN(strings.TrimSpace(rest), ",", len(columns))
		if len(fields) < len(columns) {
			return nil, fmt.Errorf("expected %d fields at line %d, got %d", len(columns), l.num, len(fields))
		}

		start, err := parseASSClock(fields[startCol])
		if err != nil {
			return nil, fmt.Errorf("invalid start timestamp at line %d: %w", l.num, err)
		}
		end, err := parseASSClock(fields[endCol])
		if err != nil {
			return nil, fmt.Errorf("invalid end timestamp at line %d: %w", l.num, err)
		}

		text := assOverrideRegex.ReplaceAllString(fields[textCol], "")
		text = strings.NewReplacer(`\N`, "\n", `\n`, "\n", `\h`, " ").Replace(text)

		entries = append(entries, Entry{
			Index:     len(entries) + 1,
			StartTime: start,
			EndTime:   end,
			Text:      strings.TrimSpace(text),
		})
	}

	if columns == nil {
		return nil, fmt.Errorf("ASS file missing Format line in [Events] section")
	}
	return entries, nil
}

// parses H:MM:SS.cc
func parseASSClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	main, frac, ok := strings.Cut(s, ".")
	if !ok {
		return 0, fmt.Errorf("bad ASS clock %q", s)
	}
	if !isDigits(frac) || len(frac) > 2 {
		return 0, fmt.Errorf("bad ASS clock %q", s)
	}
	cs, _ := strconv.Atoi(frac)
	if len(frac) == 1 {
		cs *= 10
	}

	parts := strings.Split(main, ":")
	if len(parts) != 3 || !isDigits(parts[0]) || !isDigits(parts[1]) || !isDigits(parts[2]) {
		return 0, fmt.Errorf("bad ASS clock %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("bad ASS clock %q", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(cs)*10*time.Millisecond, nil
}

// isDigits reports whether s is a non-empty run of ASCII digits. strconv.Atoi
// alone would let signs through.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
