// Package contextmgr tracks the files a thread has attached as context:
// what's been read, which category each falls in, and which on-disk
// paths have changed since last read.
package contextmgr

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Category classifies an attached path for rendering and eviction
// policy.
type Category int

const (
	CategoryText Category = iota
	CategoryImage
	CategoryPDF
	CategoryOther
)

// PDFView tracks which pages of a PDF have been attached and whether a
// summary-only view was requested instead of full page content.
type PDFView struct {
	Summary bool
	Pages   map[int]struct{}
}

// Entry is one attached path's tracked state.
type Entry struct {
	RelPath        string
	AbsPath        string
	Category       Category
	AgentView      *PDFView
	MtimeSeen      time.Time
	SummarizedOnly bool
}

// Manager owns the relPath → Entry map for one thread.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*Entry

	watchMu    sync.Mutex
	watcher    fsWatcher
	watchedDir map[string]struct{}
}

// fsWatcher is the subset of *fsnotify.Watcher the manager needs,
// abstracted so tests can substitute a fake without touching the real
// filesystem's notification queue.
type fsWatcher interface {
	Add(path string) error
	Remove(path string) error
	Close() error
}

// New constructs an empty Manager. Attach a watcher with SetWatcher to
// enable CheckForUpdates-independent change notification; without one,
// CheckForUpdates still works by stat-ing every tracked path.
func New() *Manager {
	return &Manager{
		entries:    make(map[string]*Entry),
		watchedDir: make(map[string]struct{}),
	}
}

// SetWatcher installs a shared fsnotify-backed watcher. One watcher
// covers every attached path's parent directory rather than one watcher
// per file, bounding OS watch-descriptor usage the way the teacher's
// skills manager bounds its own directory watch set.
func (m *Manager) SetWatcher(w fsWatcher) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	m.watcher = w
}

// Add attaches relPath under category. Re-adding an already-tracked path
// is idempotent except for PDFs, where the new page set is unioned into
// the existing one rather than replacing it.
func (m *Manager) Add(relPath, absPath string, category Category, view *PDFView) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mtime := statMtime(absPath)

	if existing, ok := m.entries[relPath]; ok {
		existing.MtimeSeen = mtime
		if category == CategoryPDF && view != nil {
			if existing.AgentView == nil {
				existing.AgentView = &PDFView{Pages: make(map[int]struct{})}
			}
			existing.AgentView.Summary = existing.AgentView.Summary || view.Summary
			for p := range view.Pages {
				existing.AgentView.Pages[p] = struct{}{}
			}
		}
		m.watchDir(absPath)
		return
	}

	m.entries[relPath] = &Entry{
		RelPath:   relPath,
		AbsPath:   absPath,
		Category:  category,
		AgentView: view,
		MtimeSeen: mtime,
	}
	m.watchDir(absPath)
}

// Contains reports whether relPath is already tracked, for get_file's
// "already in context" short-circuit.
func (m *Manager) Contains(relPath string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[relPath]
	return e, ok
}

// Remove detaches relPath.
func (m *Manager) Remove(relPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, relPath)
}

// Listing returns every tracked entry sorted by relPath, for the view
// engine's sidebar "Context:" section.
func (m *Manager) Listing() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

// CheckForUpdates returns the relPaths whose on-disk mtime has advanced
// past MtimeSeen, and bumps MtimeSeen for each so a later call only
// reports further changes.
func (m *Manager) CheckForUpdates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []string
	for relPath, e := range m.entries {
		mtime := statMtime(e.AbsPath)
		if mtime.After(e.MtimeSeen) {
			e.MtimeSeen = mtime
			changed = append(changed, relPath)
		}
	}
	sort.Strings(changed)
	return changed
}

// watchDir registers absPath's parent directory with the shared watcher,
// if one is installed and the directory isn't already covered.
func (m *Manager) watchDir(absPath string) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watcher == nil {
		return
	}
	dir := filepath.Dir(absPath)
	if _, ok := m.watchedDir[dir]; ok {
		return
	}
	if err := m.watcher.Add(dir); err == nil {
		m.watchedDir[dir] = struct{}{}
	}
}

// Close releases the shared watcher, if any.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Close()
	m.watcher = nil
	return err
}

func statMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// FormatPDFPages renders a page set as collapsed ranges, e.g. "1-3, 5",
// for the sidebar's "(summary, pages 1-3, 5)" rendering.
func FormatPDFPages(pages map[int]struct{}) string {
	if len(pages) == 0 {
		return ""
	}
	sorted := make([]int, 0, len(pages))
	for p := range pages {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	var ranges []string
	start := sorted[0]
	prev := sorted[0]
	flush := func(end int) {
		if start == end {
			ranges = append(ranges, strconv.Itoa(start))
		} else {
			ranges = append(ranges, strconv.Itoa(start)+"-"+strconv.Itoa(end))
		}
	}
	for _, p := range sorted[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush(prev)
		start, prev = p, p
	}
	flush(prev)

	out := ranges[0]
	for _, r := range ranges[1:] {
		out += ", " + r
	}
	return out
}
