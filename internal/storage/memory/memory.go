// Package memory is a volatile ports.Store used for development and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
)

var (
	defaultCategories = []string{"Food", "Rent", "Utilities", "Transport", "Travel", "Health", "Entertainment", "Shopping", "Education", "Other"}
	defaultSources    = []string{"Salary", "Business", "Side Hustle", "Investments", "Gifts", "Other"}
)

type Store struct {
	mu      sync.RWMutex
	cats    []string
	sources []string
	records map[int64]core.Record
	users   map[int64]core.User
	nextRec int64
	nextUsr int64
	now     func() time.Time
}

func New(cats, sources []string) *Store {
	return &Store{
		cats:    dedupe(cats),
		sources: dedupe(sources),
		records: make(map[int64]core.Record),
		users:   make(map[int64]core.User),
		now:     time.Now,
	}
}

// NewFromFiles seeds categories and sources from seed_categories.txt and
// seed_sources.txt under base, falling back to built-in lists.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	sources := readLines(filepath.Join(base, "seed_sources.txt"))
	if len(cats) == 0 {
		cats = defaultCategories
	}
	if len(sources) == 0 {
		sources = defaultSources
	}
	return New(cats, sources)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRec++
	r.ID = s.nextRec
	r.CreatedAt = s.now().UTC()
	r.UpdatedAt = r.CreatedAt
	s.records[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[r.ID]
	if !ok || cur.Owner != r.Owner || cur.Kind != r.Kind {
		return core.Record{}, core.ErrNotFound
	}
	cur.Amount = r.Amount
	cur.Date = r.Date
	cur.Category = r.Category
	cur.Description = r.Description
	cur.UpdatedAt = s.now().UTC()
	s.records[r.ID] = cur
	return cur, nil
}

func (s *Store) DeleteRecord(_ context.Context, owner int64, kind core.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[id]
	if !ok || cur.Owner != owner || cur.Kind != kind {
		return core.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *Store) GetRecord(_ context.Context, owner int64, kind core.Kind, id int64) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.records[id]
	if !ok || cur.Owner != owner || cur.Kind != kind {
		return core.Record{}, core.ErrNotFound
	}
	return cur, nil
}

func (s *Store) ListRecords(_ context.Context, q core.RecordQuery) ([]core.Record, error) {
	out := s.filter(q.Owner, q.Kind, func(r core.Record) bool {
		if !q.From.IsZero() && r.Date.Before(q.From.Time) {
			return false
		}
		if !q.To.IsZero() && r.Date.After(q.To.Time) {
			return false
		}
		return true
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []core.Record{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) CountRecords(_ context.Context, owner int64, kind core.Kind) (int, error) {
	return len(s.filter(owner, kind, nil)), nil
}

func (s *Store) SearchRecords(_ context.Context, owner int64, kind core.Kind, text string) ([]core.Record, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	return s.filter(owner, kind, func(r core.Record) bool {
		return strings.HasPrefix(core.FormatAmount(r.Amount), needle) ||
			strings.HasPrefix(r.Date.String(), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) ||
			strings.Contains(strings.ToLower(r.Category), needle)
	}), nil
}

// filter returns the owner's records of kind accepted by keep, newest first.
func (s *Store) filter(owner int64, kind core.Kind, keep func(core.Record) bool) []core.Record {
	s.mu.RLock()
	out := make([]core.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Owner != owner || r.Kind != kind {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return core.User{}, core.ErrUsernameTaken
		}
	}
	s.nextUsr++
	u.ID = s.nextUsr
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.UserByUsername(ctx, username)
	return err == nil, nil
}

func (s *Store) UpdateCurrency(_ context.Context, id int64, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Currency = currency
	s.users[id] = u
	return nil
}

// ListCategories returns expense categories or income sources.
func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == core.KindIncome {
		return append([]string(nil), s.sources...), nil
	}
	return append([]string(nil), s.cats...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
