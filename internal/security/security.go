package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard confines the local files the CLI reads workbooks from and writes
// results to. Roots are stored as canonical absolute paths; a Guard with no
// roots only enforces extensions.
type Guard struct {
	roots     []string
	readExts  map[string]struct{}
	writeExts map[string]struct{}
}

// ErrNotAllowed indicates the path resolves outside every allowed root.
var ErrNotAllowed = errors.New("security: path not allowed")

// ErrUnsupportedExtension indicates the file extension is not a workbook or export type.
var ErrUnsupportedExtension = errors.New("security: unsupported file extension")

// ErrNotFound indicates the file (or, for writes, its directory) does not exist.
var ErrNotFound = errors.New("security: file not found")

var (
	workbookExts = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}
	exportExts   = []string{".xlsx", ".xlsm", ".csv"}
)

func extSet(exts []string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// NewGuard canonicalizes roots (absolute + EvalSymlinks) and checks that each
// is an existing directory. Blank entries are skipped.
func NewGuard(roots []string) (*Guard, error) {
	canonical := make([]string, 0, len(roots))
	for _, d := range roots {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("security: resolve abs for %q: %w", d, err)
		}
		// Resolve symlinked roots so containment is checked on real paths.
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("security: stat %q: %w", real, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("security: allowed entry is not a directory: %q", real)
		}
		canonical = append(canonical, filepath.Clean(real))
	}
	return &Guard{
		roots:     canonical,
		readExts:  extSet(workbookExts),
		writeExts: extSet(exportExts),
	}, nil
}

// Restricted reports whether any roots are configured.
func (g *Guard) Restricted() bool { return len(g.roots) > 0 }

// Roots returns the canonical allowed roots.
func (g *Guard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// ReadPath checks that input names an existing workbook file inside the
// roots and returns its canonical path.
func (g *Guard) ReadPath(input string) (string, error) {
	if input == "" {
		return "", ErrNotAllowed
	}
	if _, ok := g.readExts[strings.ToLower(filepath.Ext(input))]; !ok {
		return "", ErrUnsupportedExtension
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if info.IsDir() || !g.contains(real) {
		return "", ErrNotAllowed
	}
	return real, nil
}

// WritePath checks that input may be created or overwritten: its directory
// must exist inside the roots and an existing target must be a regular file
// (or a symlink that also resolves inside the roots).
func (g *Guard) WritePath(input string) (string, error) {
	if input == "" {
		return "", ErrNotAllowed
	}
	if _, ok := g.writeExts[strings.ToLower(filepath.Ext(input))]; !ok {
		return "", ErrUnsupportedExtension
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	info, err := os.Lstat(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return "", fmt.Errorf("security: stat: %w", err)
	case info.IsDir():
		return "", ErrNotAllowed
	case info.Mode()&os.ModeSymlink != 0:
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil {
			return "", ErrNotAllowed
		}
		target = resolved
	}
	if !g.contains(target) {
		return "", ErrNotAllowed
	}
	return target, nil
}

func (g *Guard) contains(real string) bool {
	if len(g.roots) == 0 {
		return true
	}
	for _, root := range g.roots {
		rel, err := filepath.Rel(root, real)
		if err != nil || rel == "." {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
