// Package blacklist persists the set of numbers that must never be messaged.
package blacklist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"homebase/internal/phone"
)

// Set is an in-memory snapshot of blacklisted numbers.
type Set map[phone.Number]struct{}

func (s Set) Contains(n phone.Number) bool {
	_, ok := s[n]
	return ok
}

func (s Set) Add(n phone.Number) { s[n] = struct{}{} }

// Numbers returns the set contents sorted, for deterministic output.
func (s Set) Numbers() []phone.Number {
	out := make([]phone.Number, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Store reads and writes the blacklist file: one canonical number per line,
// UTF-8, sorted, no duplicates. The file is the single source of truth; Save
// always overwrites it completely.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (st *Store) Path() string { return st.path }

// Load reads the full blacklist into memory. A missing file is an empty set,
// not an error. Lines that are not canonical numbers are re-normalized where
// possible and dropped otherwise.
func (st *Store) Load() (Set, error) {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blacklist %s: %w", st.path, err)
	}

	set := Set{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n, ok := phone.Normalize(line); ok {
			set.Add(n)
		}
	}
	return set, nil
}

// Save overwrites the blacklist file with the given set.
func (st *Store) Save(set Set) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("create blacklist directory: %w", err)
	}
	var b strings.Builder
	for _, n := range set.Numbers() {
		b.WriteString(string(n))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(st.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write blacklist %s: %w", st.path, err)
	}
	return nil
}

// Reset removes the blacklist file entirely.
func (st *Store) Reset() error {
	err := os.Remove(st.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
