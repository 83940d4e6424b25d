package vfolder

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/bmwcarit/gopbap/vcard"
	"github.com/charmbracelet/log"
)

// phonebookObjectNames are the well-known leaf names of §3 "Virtual folder":
// each appears both as a directory of individual vCards and as a whole-
// phonebook file of the same name with a ".vcf" suffix.
var phonebookObjectNames = map[string]bool{
	"pb": true, "ich": true, "och": true, "mch": true,
	"cch": true, "spd": true, "fav": true,
}

// FSStore is the filesystem-backed Store, grounded on the source's
// VFolderPhoneBook_FS: one real file per vCard record, named by its
// zero-based position in numeric order ("0.vcf", "1.vcf", ...), under a
// directory named after its phonebook object ("pb", "mch", ...). The
// matching "<object>.vcf" whole-phonebook file is virtual: IsFile reports
// it precisely when its sibling directory exists, whether or not a file of
// that name is on disk (Put may write one when mirroring).
type FSStore struct {
	rootDir string
}

// NewFSStore returns a Store rooted at rootDir on the host filesystem.
// rootDir must already exist.
func NewFSStore(rootDir string) *FSStore {
	return &FSStore{rootDir: filepath.Clean(rootDir)}
}

// Join concatenates virtual path elements, returning a cleaned absolute
// virtual path (e.g. Join("/telecom/pb", "..") == "/telecom").
func (s *FSStore) Join(elems ...string) string {
	joined := path.Join(elems...)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return path.Clean(joined)
}

func (s *FSStore) osPath(virtual string) string {
	clean := path.Clean("/" + virtual)
	return filepath.Join(s.rootDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func (s *FSStore) IsDir(virtual string) bool {
	info, err := os.Stat(s.osPath(virtual))
	return err == nil && info.IsDir()
}

// IsFile reports whether virtual names an individual vCard (an in-range
// numbered ".vcf" inside a phonebook-object directory) or a whole-phonebook
// file (a well-known object name with ".vcf" whose sibling directory
// exists).
func (s *FSStore) IsFile(virtual string) bool {
	if !strings.HasSuffix(virtual, ".vcf") {
		return false
	}
	stem := strings.TrimSuffix(virtual, ".vcf")
	base := path.Base(stem)
	dir := path.Dir(stem)

	if idx, err := strconv.Atoi(base); err == nil && idx >= 0 {
		count, err := s.Count(dir)
		return err == nil && idx < count
	}
	if phonebookObjectNames[base] {
		return s.IsDir(stem)
	}
	return false
}

func (s *FSStore) Exists(virtual string) bool {
	return s.IsDir(virtual) || s.IsFile(virtual)
}

// MakeDirs creates virtual, failing with KindPathExists if it is already a
// folder or a file (§4.F SETPATH's "already exists" precondition).
func (s *FSStore) MakeDirs(virtual string) error {
	if s.Exists(virtual) {
		return pbaperrors.New(pbaperrors.KindPathExists, "vfolder.MakeDirs", virtual)
	}
	if err := os.MkdirAll(s.osPath(virtual), 0o755); err != nil {
		return pbaperrors.Wrap(pbaperrors.KindTransportError, "vfolder.MakeDirs", "mkdir failed", err)
	}
	return nil
}

// sortedEntries returns the ".vcf" filenames directly under virtual, in
// ascending numeric order (the stand-in for the source's
// `sorted(os.listdir(path), key=lambda x: int(splitext(x)[0]))`).
func (s *FSStore) sortedEntries(virtual string) ([]string, error) {
	entries, err := os.ReadDir(s.osPath(virtual))
	if err != nil {
		return nil, pbaperrors.Wrap(pbaperrors.KindPathNotFound, "vfolder.listdir", virtual, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".vcf") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ni, erri := strconv.Atoi(strings.TrimSuffix(names[i], ".vcf"))
		nj, errj := strconv.Atoi(strings.TrimSuffix(names[j], ".vcf"))
		if erri != nil || errj != nil {
			return names[i] < names[j]
		}
		return ni < nj
	})
	return names, nil
}

func (s *FSStore) readCard(virtual string) (vcard.Card, error) {
	data, err := os.ReadFile(s.osPath(virtual))
	if err != nil {
		return vcard.Card{}, pbaperrors.Wrap(pbaperrors.KindPathNotFound, "vfolder.read", virtual, err)
	}
	version := vcard.Version30
	if strings.Contains(string(data), "VERSION:2.1") {
		version = vcard.Version21
	}
	return vcard.Parse(data, version)
}

// ListDir returns every record under virtual, in the numeric filename order
// established when they were written, filtered by query.
func (s *FSStore) ListDir(virtual string, query Query) ([]vcard.Card, error) {
	names, err := s.sortedEntries(virtual)
	if err != nil {
		return nil, err
	}
	var out []vcard.Card
	for _, name := range names {
		card, err := s.readCard(path.Join(virtual, name))
		if err != nil {
			log.Warn("vfolder: skipping unreadable record", "path", path.Join(virtual, name), "error", err)
			continue
		}
		if query.Matches(card) {
			out = append(out, card)
		}
	}
	return out, nil
}

// Read returns the single record named by an "<index>.vcf" path, addressed
// by its position within the full numeric filename order of its parent
// directory (§4.E; the source's VFolderPhoneBook_FS.read opens the file
// directly rather than re-deriving position from a filtered listing).
func (s *FSStore) Read(virtual string) (vcard.Card, error) {
	if !s.IsFile(virtual) {
		return vcard.Card{}, pbaperrors.New(pbaperrors.KindNotAFile, "vfolder.Read", virtual)
	}
	return s.readCard(virtual)
}

// Count returns the number of ".vcf" records directly under virtual.
func (s *FSStore) Count(virtual string) (int, error) {
	names, err := s.sortedEntries(virtual)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// Put writes raw vCard text to virtual, creating any missing parent
// directories. Unlike MakeDirs this never fails on an existing path: it is
// the PCE-only write operation mirror_vfolder uses to stage pulled records
// on local disk (§12 "SUPPLEMENTED FEATURES"); the PSE never calls it.
func (s *FSStore) Put(virtual string, data []byte) error {
	osp := s.osPath(virtual)
	if err := os.MkdirAll(filepath.Dir(osp), 0o755); err != nil {
		return pbaperrors.Wrap(pbaperrors.KindTransportError, "vfolder.Put", "mkdir parent failed", err)
	}
	if err := os.WriteFile(osp, data, 0o644); err != nil {
		return pbaperrors.Wrap(pbaperrors.KindTransportError, "vfolder.Put", "write failed", err)
	}
	return nil
}

var _ Store = (*FSStore)(nil)
