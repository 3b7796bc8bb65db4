package caption

import (
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Store owns the caption collection of one editing session. The collection is
// kept sorted by StartTime; captions sharing a start keep insertion order.
// Callers only ever see copies.
type Store struct {
	mu       sync.RWMutex
	captions []Caption
	nextID   uint64
}

func NewStore() *Store {
	return &Store{
		captions: make([]Caption, 0),
	}
}

// Add parses the time fields, trims the text and inserts a new caption.
func (s *Store) Add(text, start, end string) (Caption, error) {
	if strings.TrimSpace(text) == "" {
		return Caption{}, &ValidationError{Field: "text", Err: ErrEmptyText}
	}
	startSec, err := ParseSeconds("startTime", start)
	if err != nil {
		return Caption{}, err
	}
	endSec, err := ParseSeconds("endTime", end)
	if err != nil {
		return Caption{}, err
	}
	return s.AddSeconds(text, startSec, endSec)
}

// AddSeconds is Add for callers that already hold numeric times.
func (s *Store) AddSeconds(text string, start, end float64) (Caption, error) {
	text = strings.TrimSpace(text)
	if err := validate(text, start, end); err != nil {
		return Caption{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c := Caption{
		ID:        ID(strconv.FormatUint(s.nextID, 10)),
		Text:      text,
		StartTime: start,
		EndTime:   end,
	}

	s.captions = append(s.captions, c)
	slices.SortStableFunc(s.captions, func(a, b Caption) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		default:
			return 0
		}
	})

	return c, nil
}

// Remove deletes the caption with the given id. Unknown ids are ignored.
func (s *Store) Remove(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.captions = slices.DeleteFunc(s.captions, func(c Caption) bool {
		return c.ID == id
	})
}

// Update replaces the text of an existing caption. Times, id and position in
// the collection are untouched.
func (s *Store) Update(id ID, text string) (Caption, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Caption{}, &NotFoundError{ID: id}
	}
	if text == "" {
		return Caption{}, &ValidationError{Field: "text", Err: ErrEmptyText}
	}

	s.captions[i].Text = text
	return s.captions[i], nil
}

func (s *Store) Get(id ID) (Caption, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Caption{}, false
	}
	return s.captions[i], true
}

// List returns a snapshot ordered by StartTime.
func (s *Store) List() []Caption {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.captions)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.captions)
}

// Clear drops every caption. Ids handed out before are still never reused.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.captions = s.captions[:0]
}

// ActiveAt returns the first caption, in StartTime order, whose interval
// contains t. Among overlapping captions the earliest start wins.
func (s *Store) ActiveAt(t float64) (Caption, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.captions {
		if c.StartTime > t {
			break
		}
		if c.Contains(t) {
			return c, true
		}
	}
	return Caption{}, false
}

func (s *Store) indexOf(id ID) int {
	return slices.IndexFunc(s.captions, func(c Caption) bool {
		return c.ID == id
	})
}
