package caption

import (
	"errors"
	"slices"
	"testing"
)

func mustAdd(t *testing.T, s *Store, text, start, end string) Caption {
	t.Helper()
	c, err := s.Add(text, start, end)
	if err != nil {
		t.Fatalf("Add(%q, %q, %q) returned error: %v", text, start, end, err)
	}
	return c
}

func TestAddTrimsAndParses(t *testing.T) {
	s := NewStore()
	c := mustAdd(t, s, "  hi  ", "1.5", "3.0")

	if c.Text != "hi" {
		t.Errorf("expected text %q, got %q", "hi", c.Text)
	}
	if c.StartTime != 1.5 || c.EndTime != 3.0 {
		t.Errorf("expected times 1.5-3.0, got %v-%v", c.StartTime, c.EndTime)
	}
	if c.ID == "" {
		t.Error("expected a non-empty id")
	}

	got, ok := s.Get(c.ID)
	if !ok || got != c {
		t.Errorf("Get(%s) = %+v, %v; want %+v", c.ID, got, ok, c)
	}
}

func TestAddKeepsCollectionSorted(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "third", "10", "12")
	mustAdd(t, s, "first", "0", "2")
	mustAdd(t, s, "second", "5", "6")
	mustAdd(t, s, "also first", "0", "1")

	list := s.List()
	want := []string{"first", "also first", "second", "third"}
	if len(list) != len(want) {
		t.Fatalf("expected %d captions, got %d", len(want), len(list))
	}
	for i, c := range list {
		if c.Text != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], c.Text)
		}
		if i > 0 && list[i-1].StartTime > c.StartTime {
			t.Errorf("collection not sorted at %d", i)
		}
	}

	seen := make(map[ID]bool)
	for _, c := range list {
		if seen[c.ID] {
			t.Errorf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end string
		want       error
	}{
		{"empty text", "", "0", "1", ErrEmptyText},
		{"blank text", "   \t", "0", "1", ErrEmptyText},
		{"start not a number", "hi", "abc", "1", ErrInvalidTime},
		{"end not a number", "hi", "0", "", ErrInvalidTime},
		{"start is NaN", "hi", "NaN", "1", ErrInvalidTime},
		{"end is infinite", "hi", "0", "Inf", ErrInvalidTime},
		{"negative start", "hi", "-1", "1", ErrNegativeTime},
		{"start equals end", "hi", "2", "2", ErrTimeOrder},
		{"start after end", "hi", "5", "3", ErrTimeOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			existing := mustAdd(t, s, "keep", "0", "1")
			before := s.List()

			_, err := s.Add(tt.text, tt.start, tt.end)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}

			after := s.List()
			if !slices.Equal(before, after) {
				t.Errorf("store mutated by rejected add: %+v -> %+v", before, after)
			}
			if after[0] != existing {
				t.Errorf("existing caption changed")
			}
		})
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, "a", "0", "1")
	b := mustAdd(t, s, "b", "2", "3")

	s.Remove(a.ID)
	s.Remove(a.ID)
	s.Remove(ID("missing"))

	list := s.List()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("expected only %s left, got %+v", b.ID, list)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, "a", "0", "1")
	s.Remove(a.ID)
	s.Clear()
	b := mustAdd(t, s, "b", "0", "1")

	if a.ID == b.ID {
		t.Errorf("id %s reused after delete and clear", a.ID)
	}
}

func TestUpdateChangesTextOnly(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "one", "0", "1")
	target := mustAdd(t, s, "two", "1", "4")
	mustAdd(t, s, "three", "1", "2")

	updated, err := s.Update(target.ID, "  changed  ")
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Text != "changed" {
		t.Errorf("expected trimmed text %q, got %q", "changed", updated.Text)
	}
	if updated.ID != target.ID ||
		updated.StartTime != target.StartTime ||
		updated.EndTime != target.EndTime {
		t.Errorf("update touched more than text: %+v -> %+v", target, updated)
	}

	list := s.List()
	if list[1].ID != target.ID {
		t.Errorf("update changed ordering: %+v", list)
	}
}

func TestUpdateErrors(t *testing.T) {
	s := NewStore()
	c := mustAdd(t, s, "keep", "0", "1")

	_, err := s.Update(ID("nope"), "text")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrNotFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}

	_, err = s.Update(c.ID, "   ")
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}

	got, _ := s.Get(c.ID)
	if got.Text != "keep" {
		t.Errorf("rejected update changed text to %q", got.Text)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "original", "0", "1")

	list := s.List()
	list[0].Text = "mutated"

	if s.List()[0].Text != "original" {
		t.Error("List exposed internal storage")
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "a", "0", "1")
	mustAdd(t, s, "b", "1", "2")

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d captions", s.Len())
	}
	if _, ok := s.ActiveAt(0.5); ok {
		t.Error("cleared store still reports an active caption")
	}
}

func TestActiveAt(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, "A", "0", "5")
	b := mustAdd(t, s, "B", "3", "8")
	w := mustAdd(t, s, "world", "10", "15")

	tests := []struct {
		name   string
		t      float64
		want   ID
		wantOK bool
	}{
		{"start bound inclusive", 0, a.ID, true},
		{"overlap earliest start wins", 4, a.ID, true},
		{"end bound inclusive", 5, a.ID, true},
		{"second caption after first ends", 6, b.ID, true},
		{"gap", 9, "", false},
		{"last caption", 15, w.ID, true},
		{"past the end", 20, "", false},
		{"before zero", -1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.ActiveAt(tt.t)
			if ok != tt.wantOK {
				t.Fatalf("ActiveAt(%v) ok = %v, want %v", tt.t, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ID != tt.want {
				t.Errorf("ActiveAt(%v) = %s, want %s", tt.t, got.ID, tt.want)
			}
			if !got.Contains(tt.t) {
				t.Errorf("active caption %+v does not contain %v", got, tt.t)
			}
		})
	}
}

func TestActiveAtGap(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "hello", "0", "5")
	mustAdd(t, s, "world", "10", "15")

	if c, ok := s.ActiveAt(7); ok {
		t.Errorf("expected no active caption at 7, got %+v", c)
	}
}

func TestActiveAtOverlapIgnoresInsertionOrder(t *testing.T) {
	s := NewStore()
	b := mustAdd(t, s, "B", "3", "8")
	a := mustAdd(t, s, "A", "0", "5")

	got, ok := s.ActiveAt(4)
	if !ok {
		t.Fatal("expected an active caption")
	}
	if got.ID != a.ID {
		t.Errorf("expected earliest-start caption %s, got %s (added first: %s)", a.ID, got.ID, b.ID)
	}
}
