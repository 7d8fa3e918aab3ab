package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// ErrUnknownCommand is returned for names the registry does not hold.
var ErrUnknownCommand = errors.New("unknown command")

// ManifestExt is the extension of command source files.
const ManifestExt = ".yaml"

// Publisher pushes the full command set to the platform. Publishing the same
// set twice must be harmless.
type Publisher interface {
	Publish(ctx context.Context, cmds []*discordgo.ApplicationCommand) error
}

// Registry holds at most one descriptor per command name.
type Registry struct {
	mu          sync.RWMutex
	catalog     *Catalog
	middlewares []Middleware
	byName      map[string]*Descriptor
	order       []string

	pubMu     sync.Mutex
	publisher Publisher
}

func NewRegistry(catalog *Catalog, mws ...Middleware) *Registry {
	return &Registry{
		catalog:     catalog,
		middlewares: mws,
		byName:      make(map[string]*Descriptor),
	}
}

// SetPublisher sets where Publish sends the command set.
func (r *Registry) SetPublisher(p Publisher) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	r.publisher = p
}

// Load reads one command source and inserts or replaces its descriptor.
// On failure the registry is left unchanged and the error wraps ErrLoadFailure.
func (r *Registry) Load(category, path string) (*Descriptor, error) {
	desc, err := r.build(category, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailure, path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A renamed command drops the name it was loaded under before.
	for name, d := range r.byName {
		if d.Source == desc.Source && name != desc.Name {
			r.removeLocked(name)
		}
	}

	if _, exists := r.byName[desc.Name]; !exists {
		r.order = append(r.order, desc.Name)
	}
	r.byName[desc.Name] = desc
	return desc, nil
}

func (r *Registry) build(category, path string) (*Descriptor, error) {
	if category == "" {
		return nil, errors.New("missing category")
	}
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	h, ok := r.catalog.Lookup(m.Handler)
	if !ok {
		return nil, fmt.Errorf("handler %q is not in the catalog", m.Handler)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Descriptor{
		Name:        m.Name,
		Category:    category,
		Description: m.Description,
		HandlerID:   m.Handler,
		Cooldown:    m.CooldownDuration(),
		GuildOnly:   m.GuildOnly,
		Source:      abs,
		Definition:  m.ApplicationCommand(),
		Handler:     Apply(h, r.middlewares...),
	}, nil
}

// Source is one manifest found under a commands root.
type Source struct {
	Category string
	Path     string
}

// Sources lists every <root>/<category>/*.yaml, sorted by category then path.
func Sources(root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read commands dir: %w", err)
	}

	var out []Source
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(root, e.Name(), "*"+ManifestExt))
		if err != nil {
			continue
		}
		sort.Strings(files)
		for _, f := range files {
			out = append(out, Source{Category: e.Name(), Path: f})
		}
	}
	return out, nil
}

// LoadAll loads every source under root. Individual failures are logged and
// skipped; the error is returned only when root cannot be read.
func (r *Registry) LoadAll(root string) (int, error) {
	sources, err := Sources(root)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, src := range sources {
		d, err := r.Load(src.Category, src.Path)
		if err != nil {
			log.Error().Err(err).Str("category", src.Category).Msg("failed to load command")
			continue
		}
		log.Debug().Str("command", d.Name).Str("category", src.Category).Msg("loaded command")
		loaded++
	}
	return loaded, nil
}

// Reload re-reads a registered command from its source and publishes the set.
func (r *Registry) Reload(ctx context.Context, name string) (*Descriptor, error) {
	old, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	d, err := r.Load(old.Category, old.Source)
	if err != nil {
		return nil, err
	}
	if err := r.Publish(ctx); err != nil {
		return d, fmt.Errorf("publish: %w", err)
	}
	return d, nil
}

func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// All returns descriptors in insertion order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.byName[name])
	}
	return list
}

// ByCategory groups descriptors by category.
func (r *Registry) ByCategory() map[string][]*Descriptor {
	out := make(map[string][]*Descriptor)
	for _, d := range r.All() {
		out[d.Category] = append(out[d.Category], d)
	}
	return out
}

// Unregister removes a command. It reports whether the name was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return false
	}
	r.removeLocked(name)
	return true
}

// UnregisterSource removes the command loaded from path, if any.
func (r *Registry) UnregisterSource(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, d := range r.byName {
		if d.Source == abs {
			r.removeLocked(name)
			return name, true
		}
	}
	return "", false
}

func (r *Registry) removeLocked(name string) {
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// ApplicationCommands returns the Discord definitions of all commands.
func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	all := r.All()
	defs := make([]*discordgo.ApplicationCommand, 0, len(all))
	for _, d := range all {
		defs = append(defs, d.Definition)
	}
	return defs
}

// Publish sends the full command set through the publisher, if one is set.
func (r *Registry) Publish(ctx context.Context) error {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if r.publisher == nil {
		return nil
	}
	return r.publisher.Publish(ctx, r.ApplicationCommands())
}

// CategoryDir reports the category of a manifest path under root, or false
// when the path is not <root>/<category>/<name>.yaml.
func CategoryDir(root, path string) (string, bool) {
	if !strings.HasSuffix(path, ManifestExt) {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." {
		return "", false
	}
	return parts[0], true
}
