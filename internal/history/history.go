package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Simplici0/capcost/internal/calc"
)

// TimeLayout renders entry timestamps for people, e.g. "10/19/2026, 3:04:05 PM".
const TimeLayout = "1/2/2006, 3:04:05 PM"

// ErrNotFound is returned when no entry exists for an id.
var ErrNotFound = errors.New("history entry not found")

// Entry is an immutable snapshot of the derived metrics at the moment it was
// generated. Metric values are rounded to two decimals.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Time      string    `json:"time"`
	CapType   string    `json:"capType"`

	CapsPerMinute float64 `json:"capsPerMin"`
	CapWeight     float64 `json:"capWeight"`
	RawMaterial   float64 `json:"rmCost"`
	Electricity   float64 `json:"electricity"`
	Labour        float64 `json:"labour"`
	Transport     float64 `json:"transport"`
	Packaging     float64 `json:"packaging"`
	EB            float64 `json:"eb"`
	TotalCost     float64 `json:"totalCost"`
	SellingPrice  float64 `json:"sellingPrice"`

	// Undefined names the metrics that were not finite when the entry was made.
	Undefined []string `json:"undefined,omitempty"`
}

// Store keeps entries ordered by recency.
type Store interface {
	// Prepend adds e in front of all existing entries.
	Prepend(ctx context.Context, e Entry) error
	// List returns all entries, latest first.
	List(ctx context.Context) ([]Entry, error)
	// Get returns the entry with the given id or ErrNotFound.
	Get(ctx context.Context, id int64) (Entry, error)
}

// Log records history entries into a Store.
type Log struct {
	store Store
	now   func() time.Time
	loc   *time.Location

	mu     sync.Mutex
	lastID int64
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLocation sets the time zone of the human readable timestamp.
func WithLocation(loc *time.Location) Option {
	return func(l *Log) { l.loc = loc }
}

// NewLog returns a Log writing to store.
func NewLog(store Store, opts ...Option) *Log {
	l := &Log{store: store, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record derives the metrics of cfg, snapshots them rounded to two decimals
// and prepends the snapshot to the history.
func (l *Log) Record(ctx context.Context, cfg calc.Config, capType string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	createdAt := l.now()
	id := createdAt.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}

	e := Snapshot(calc.Derive(cfg))
	e.ID = id
	e.CreatedAt = createdAt
	e.Time = createdAt.In(l.loc).Format(TimeLayout)
	e.CapType = capType

	if err := l.store.Prepend(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("store history entry: %w", err)
	}
	l.lastID = id

	return e, nil
}

// List returns all recorded entries, latest first.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	return l.store.List(ctx)
}

// Get returns one recorded entry.
func (l *Log) Get(ctx context.Context, id int64) (Entry, error) {
	return l.store.Get(ctx, id)
}

// Snapshot copies m into an Entry with every metric rounded to two decimals.
// Identity fields are left empty.
func Snapshot(m calc.Metrics) Entry {
	e := Entry{
		CapsPerMinute: calc.Round2(m.CapsPerMinute),
		CapWeight:     calc.Round2(m.CapWeight),
		RawMaterial:   calc.Round2(m.RawMaterial),
		Electricity:   calc.Round2(m.Power),
		Labour:        calc.Round2(m.Labour),
		Transport:     calc.Round2(m.Transport),
		Packaging:     calc.Round2(m.Packaging),
		EB:            calc.Round2(m.EB),
		TotalCost:     calc.Round2(m.TotalCost),
		SellingPrice:  calc.Round2(m.SellingPrice),
	}
	for _, f := range e.metricFields() {
		if !calc.IsFinite(*f.value) {
			e.Undefined = append(e.Undefined, f.jsonName)
		}
	}
	return e
}

// MemoryStore is a Store backed by a slice.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Prepend(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]Entry{e}, s.entries...)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Entry(nil), s.entries...), nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}
