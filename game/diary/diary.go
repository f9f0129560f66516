// Package diary stores mood journal entries per user.
//
// Entries of a user are kept as one JSON list under "entries_<user id>".
// Listing supports sorting by creation time, a case-insensitive text filter
// over title, content and mood, and grouping by calendar day.
package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wricardo/moodjournal/game/storage"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrInvalidMood   = errors.New("invalid mood")
	ErrInvalidInput  = errors.New("invalid entry")
	ErrMissingUser   = errors.New("user id is required")
)

// Mood of an entry
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodCalm    Mood = "calm"
	MoodSad     Mood = "sad"
	MoodAngry   Mood = "angry"
	MoodAnxious Mood = "anxious"
	MoodNeutral Mood = "neutral"
)

// Moods lists every valid mood
var Moods = []Mood{MoodHappy, MoodCalm, MoodSad, MoodAngry, MoodAnxious, MoodNeutral}

// Valid reports whether m is a known mood
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// DayLayout is the label format used when grouping entries by day
const DayLayout = "January 2, 2006"

const keyPrefix = "entries_"

// Entry is a single journal entry
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      Mood      `json:"mood"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEntry holds the fields a user supplies when writing an entry
type NewEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Mood    Mood   `json:"mood"`
}

// EntryUpdate is a partial update; nil fields are left unchanged
type EntryUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Mood    *Mood   `json:"mood,omitempty"`
}

// SortOrder of a listing
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ListOptions controls List
type ListOptions struct {
	Order  SortOrder
	Filter string
}

// DayGroup is a set of entries written on the same calendar day
type DayGroup struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// Service manages diary entries
type Service struct {
	kv    storage.Store
	clock clockwork.Clock
	newID func() string
	mu    sync.Mutex
}

// NewService creates a diary service. A nil clock uses the real clock.
func NewService(kv storage.Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		kv:    kv,
		clock: clock,
		newID: uuid.NewString,
	}
}

// Add writes a new entry for userID
func (s *Service) Add(ctx context.Context, userID string, in NewEntry) (*Entry, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Mood == "" {
		in.Mood = MoodNeutral
	}
	if !in.Mood.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMood, in.Mood)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	entry := Entry{
		ID:        s.newID(),
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		Mood:      in.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entries = append(entries, entry)

	if err := s.save(ctx, userID, entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update applies a partial update to an entry and bumps UpdatedAt
func (s *Service) Update(ctx context.Context, userID, id string, upd EntryUpdate) (*Entry, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if upd.Mood != nil && !upd.Mood.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMood, *upd.Mood)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(entries, id)
	if idx < 0 {
		return nil, ErrEntryNotFound
	}

	entry := &entries[idx]
	if upd.Title != nil {
		entry.Title = *upd.Title
	}
	if upd.Content != nil {
		entry.Content = *upd.Content
	}
	if upd.Mood != nil {
		entry.Mood = *upd.Mood
	}
	entry.UpdatedAt = s.clock.Now().UTC()

	if err := s.save(ctx, userID, entries); err != nil {
		return nil, err
	}
	updated := *entry
	return &updated, nil
}

// Delete removes an entry
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	idx := indexOf(entries, id)
	if idx < 0 {
		return ErrEntryNotFound
	}
	entries = append(entries[:idx], entries[idx+1:]...)

	return s.save(ctx, userID, entries)
}

// Get returns a single entry
func (s *Service) Get(ctx context.Context, userID, id string) (*Entry, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(entries, id)
	if idx < 0 {
		return nil, ErrEntryNotFound
	}
	entry := entries[idx]
	return &entry, nil
}

// List returns the entries of userID sorted and filtered according to opts
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]Entry, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	s.mu.Lock()
	entries, err := s.load(ctx, userID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return Filter(Sort(entries, opts.Order), opts.Filter), nil
}

// Sort orders entries by creation time, newest first unless order is SortOldest.
// The input slice is not modified.
func Sort(entries []Entry, order SortOrder) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == SortOldest {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// Filter keeps entries whose title, content or mood contains query, ignoring case
func Filter(entries []Entry, query string) []Entry {
	if query == "" {
		return entries
	}

	q := strings.ToLower(query)
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Content), q) ||
			strings.Contains(strings.ToLower(string(e.Mood)), q) {
			out = append(out, e)
		}
	}
	return out
}

// GroupByDay groups entries by their creation day in loc, keeping the order
// of first appearance. A nil loc uses UTC.
func GroupByDay(entries []Entry, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.UTC
	}

	var groups []DayGroup
	index := make(map[string]int)
	for _, e := range entries {
		label := e.CreatedAt.In(loc).Format(DayLayout)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, DayGroup{Date: label})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) load(ctx context.Context, userID string) ([]Entry, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+userID)
	if errors.Is(err, storage.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse entries: %w", err)
	}
	return entries, nil
}

func (s *Service) save(ctx context.Context, userID string, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	if err := s.kv.Set(ctx, keyPrefix+userID, string(data)); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}
	return nil
}
