package vfolder

import (
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/bmwcarit/gopbap/vcard"
)

// MemStore is an in-memory Store, grounded on the teacher's
// interfaces.DataStore dependency-injection style: a plain map-backed
// fixture used by server tests and by pbap-server's --backend=mem mode,
// standing in for the filesystem or document-database backends without
// touching disk. It is safe for concurrent use (§5's "reads must be safe
// under concurrent server instances").
type MemStore struct {
	mu      sync.RWMutex
	dirs    map[string]bool
	records map[string][]vcard.Card
}

// NewMemStore returns an empty MemStore with only the root directory.
func NewMemStore() *MemStore {
	return &MemStore{
		dirs:    map[string]bool{"/": true},
		records: make(map[string][]vcard.Card),
	}
}

func (s *MemStore) Join(elems ...string) string {
	joined := path.Join(elems...)
	if len(joined) == 0 || joined[0] != '/' {
		joined = "/" + joined
	}
	return path.Clean(joined)
}

func (s *MemStore) IsDir(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirs[path.Clean("/"+p)]
}

func (s *MemStore) IsFile(p string) bool {
	if !hasVcfSuffix(p) {
		return false
	}
	stem := trimVcfSuffix(p)
	base := path.Base(stem)
	dir := path.Dir(stem)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := parseIndex(base); ok {
		recs := s.records[path.Clean("/"+dir)]
		return idx < len(recs)
	}
	if phonebookObjectNames[base] {
		return s.dirs[path.Clean("/"+stem)]
	}
	return false
}

func (s *MemStore) Exists(p string) bool {
	return s.IsDir(p) || s.IsFile(p)
}

// MakeDirs marks path as an existing directory, failing if it already
// exists as a directory or a file.
func (s *MemStore) MakeDirs(p string) error {
	clean := path.Clean("/" + p)
	if s.Exists(clean) {
		return pbaperrors.New(pbaperrors.KindPathExists, "vfolder.MakeDirs", clean)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[clean] = true
	return nil
}

// EnsureDir marks path as a directory unconditionally, used by fixture
// seeding where "already exists" is not an error.
func (s *MemStore) EnsureDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[path.Clean("/"+p)] = true
}

// Seed appends card to the phonebook-object directory at dir, creating the
// directory if necessary. Used to build fixtures for tests.
func (s *MemStore) Seed(dir string, card vcard.Card) {
	clean := path.Clean("/" + dir)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[clean] = true
	s.records[clean] = append(s.records[clean], card)
}

func (s *MemStore) ListDir(p string, query Query) ([]vcard.Card, error) {
	clean := path.Clean("/" + p)
	if !s.IsDir(clean) {
		return nil, pbaperrors.New(pbaperrors.KindPathNotFound, "vfolder.ListDir", clean)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []vcard.Card
	for _, card := range s.records[clean] {
		if query.Matches(card) {
			out = append(out, card)
		}
	}
	return out, nil
}

func (s *MemStore) Read(p string) (vcard.Card, error) {
	if !s.IsFile(p) {
		return vcard.Card{}, pbaperrors.New(pbaperrors.KindNotAFile, "vfolder.Read", p)
	}
	stem := trimVcfSuffix(p)
	base := path.Base(stem)
	dir := path.Clean("/" + path.Dir(stem))
	idx, _ := parseIndex(base)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[dir][idx], nil
}

func (s *MemStore) Count(p string) (int, error) {
	clean := path.Clean("/" + p)
	if !s.IsDir(clean) {
		return 0, pbaperrors.New(pbaperrors.KindPathNotFound, "vfolder.Count", clean)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[clean]), nil
}

func hasVcfSuffix(p string) bool {
	return strings.HasSuffix(p, ".vcf")
}

func trimVcfSuffix(p string) string {
	return strings.TrimSuffix(p, ".vcf")
}

func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

var _ Store = (*MemStore)(nil)
