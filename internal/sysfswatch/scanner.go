package sysfswatch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Target identifies the directory or file a Notifier observes.
type Target struct {
	Path      string
	Recursive bool
}

// Snapshot maps a cleaned entry path to its fingerprint for one scan.
type Snapshot map[string]Fingerprint

// Scanner enumerates a Target and fingerprints every entry. A Scanner is not
// safe for concurrent use; each Notifier owns one.
type Scanner struct {
	logger      *slog.Logger
	fingerprint func(path string) (Fingerprint, error)
	onError     func(path string, err error)
	failing     map[string]struct{}
}

// NewScanner creates a scanner that fingerprints entries with ComputeFingerprint.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{
		logger:      logger,
		fingerprint: ComputeFingerprint,
		failing:     make(map[string]struct{}),
	}
}

// Scan produces a fresh snapshot of target. Entries that vanished are left
// out, so the diff reports them as deleted. Entries that exist but cannot be
// read keep their fingerprint from prev: an unreadable attribute counts as
// unchanged for that tick and never hides changes to its siblings. prev may
// be nil, in which case unreadable entries are left out.
func (s *Scanner) Scan(target Target, prev Snapshot) Snapshot {
	snap := make(Snapshot)
	root := filepath.Clean(target.Path)

	rootPrint, err := s.fingerprint(root)
	if err != nil {
		s.report(root, err)
		if !errors.Is(err, fs.ErrNotExist) {
			s.carry(snap, prev, root, true)
		}
		return snap
	}
	s.recovered(root)
	snap[root] = rootPrint

	if !rootPrint.Dir {
		return snap
	}

	if target.Recursive {
		_ = filepath.WalkDir(root, func(path string, _ fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				s.report(path, walkErr)
				if !errors.Is(walkErr, fs.ErrNotExist) {
					s.carry(snap, prev, path, true)
				}
				return nil
			}
			if path != root {
				s.add(snap, prev, path)
			}
			return nil
		})
		return snap
	}

	// os.ReadDir returns the entries it managed to read alongside the error
	entries, err := os.ReadDir(root)
	if err != nil {
		s.report(root, err)
	}
	for _, entry := range entries {
		s.add(snap, prev, filepath.Join(root, entry.Name()))
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.carry(snap, prev, root, true)
	}

	return snap
}

func (s *Scanner) add(snap, prev Snapshot, path string) {
	fp, err := s.fingerprint(path)
	if err != nil {
		s.report(path, err)
		if !errors.Is(err, fs.ErrNotExist) {
			s.carry(snap, prev, path, false)
		}
		return
	}
	s.recovered(path)
	snap[path] = fp
}

// carry copies the previous fingerprint of path into snap, and with subtree
// also every previous entry below path that this scan did not reach.
func (s *Scanner) carry(snap, prev Snapshot, path string, subtree bool) {
	if fp, ok := prev[path]; ok {
		snap[path] = fp
	}
	if !subtree {
		return
	}
	prefix := path + string(filepath.Separator)
	for p, fp := range prev {
		if _, seen := snap[p]; !seen && strings.HasPrefix(p, prefix) {
			snap[p] = fp
		}
	}
}

// report logs an entry failure. Vanished entries are expected races with the
// driver and stay at debug level; other failures warn once per path until the
// entry becomes readable again.
func (s *Scanner) report(path string, err error) {
	if s.onError != nil {
		s.onError(path, err)
	}

	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("Entry vanished during scan", "path", path)
		return
	}

	if _, seen := s.failing[path]; seen {
		s.logger.Debug("Entry still unreadable", "path", path, "error", err)
		return
	}
	s.failing[path] = struct{}{}

	if errors.Is(err, fs.ErrPermission) {
		s.logger.Warn("Permission denied reading entry, treating it as unchanged", "path", path)
		return
	}
	s.logger.Warn("Failed to fingerprint entry, treating it as unchanged", "path", path, "error", err)
}

func (s *Scanner) recovered(path string) {
	if _, ok := s.failing[path]; ok {
		delete(s.failing, path)
		s.logger.Info("Entry readable again", "path", path)
	}
}

// Diff returns the sorted paths that were created, deleted or modified
// between prev and cur.
func Diff(prev, cur Snapshot) []string {
	var changed []string

	for path, fp := range cur {
		if old, ok := prev[path]; !ok || old != fp {
			changed = append(changed, path)
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			changed = append(changed, path)
		}
	}

	slices.Sort(changed)
	return changed
}

// Changed reports whether prev and cur differ at all.
func Changed(prev, cur Snapshot) bool {
	if len(prev) != len(cur) {
		return true
	}
	for path, fp := range cur {
		if old, ok := prev[path]; !ok || old != fp {
			return true
		}
	}
	return false
}
