package command

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Catalog maps handler ids such as "economy.daily" to compiled handlers.
// Manifests bind to handlers by id.
type Catalog struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	components map[string]ComponentFunc
}

func NewCatalog() *Catalog {
	return &Catalog{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering an id twice replaces the first one.
func (c *Catalog) Register(id string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.handlers[id]; exists {
		log.Warn().Str("handler", id).Msg("handler registered twice, replacing")
	}
	c.handlers[id] = h
}

// RegisterFunc is Register for plain functions.
func (c *Catalog) RegisterFunc(id string, fn HandlerFunc) {
	c.Register(id, fn)
}

func (c *Catalog) Lookup(id string) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[id]
	return h, ok
}

// IDs returns all handler ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
