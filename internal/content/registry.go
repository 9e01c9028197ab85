package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed packs/*.yaml
var builtin embed.FS

// Registry holds the packs a host can start runs from.
type Registry struct {
	mu    sync.RWMutex
	packs map[string]*Pack
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{packs: map[string]*Pack{}}
}

// Builtin returns a registry with the embedded packs.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := r.loadFS(builtin, "packs"); err != nil {
		return nil, fmt.Errorf("load builtin packs: %w", err)
	}
	return r, nil
}

// LoadDir adds every *.yaml / *.yml pack in dir. A pack with the same name
// as an existing one replaces it.
func (r *Registry) LoadDir(dir string) error {
	return r.loadFS(os.DirFS(dir), ".")
}

func (r *Registry) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read %s: %w", root, err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, e.Name())))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		p, err := Load(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		r.Add(p)
	}
	return nil
}

// Add registers p under its name.
func (r *Registry) Add(p *Pack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packs[p.Name] = p
}

// Get returns the named pack.
func (r *Registry) Get(name string) (*Pack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPack, name)
	}
	return p, nil
}

// List returns every pack sorted by name.
func (r *Registry) List() []*Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pack, 0, len(r.packs))
	for _, p := range r.packs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
