package backup

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// Selector decides which entries of the source tree take part in a run.
type Selector struct {
	extensions map[string]struct{}
	all        bool
	exclude    []string
}

// NewSelector builds a Selector from cfg. Exclude patterns are validated here
// so a bad pattern fails the run before any I/O.
func NewSelector(cfg domain.BackupConfig) (*Selector, error) {
	s := &Selector{
		extensions: cfg.Extensions,
		all:        cfg.IncludesAll(),
	}

	for _, p := range cfg.Exclude {
		p = strings.ToLower(filepath.ToSlash(p))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		s.exclude = append(s.exclude, p)
	}

	return s, nil
}

// IncludeFile reports whether the file at relPath should be copied.
func (s *Selector) IncludeFile(relPath string) bool {
	if s.excluded(relPath) {
		return false
	}
	if s.all {
		return true
	}
	_, ok := s.extensions[domain.NormalizeExtension(filepath.Ext(relPath))]
	return ok
}

// SkipDir reports whether the directory at relPath is excluded entirely.
func (s *Selector) SkipDir(relPath string) bool {
	return s.excluded(relPath)
}

func (s *Selector) excluded(relPath string) bool {
	if len(s.exclude) == 0 {
		return false
	}
	name := strings.ToLower(filepath.ToSlash(relPath))
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
