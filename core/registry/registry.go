// Package registry holds the named schemas a server validates against.
// It detects name conflicts, builds a shared resolver so schemas can
// reference each other by name, and reloads from disk when files change.
package registry

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/schema"
)

// Entry is a registered schema.
type Entry struct {
	Name     string
	Source   string
	Node     *schema.Node
	Revision string
	LoadedAt time.Time
}

// Registry manages registered schemas. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// schemas by name
	entries map[string]Entry

	// definitions lifted from schema files, by name
	defs map[string]defEntry

	resolver *schema.Resolver
	revision string

	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(revision string)
	onError  []func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

type defEntry struct {
	owner string
	node  *schema.Node
}

// New creates an empty registry.
func New(logger zerolog.Logger) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
		defs:    make(map[string]defEntry),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	r.rebuild()
	return r
}

// Register adds a parsed document. Returns a *ConflictError if its name or
// any of its definitions is already taken.
func (r *Registry) Register(doc schema.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conflicts := r.detectConflicts(doc); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	r.add(doc, time.Now())
	r.rebuild()
	return nil
}

// Unregister removes a schema and the definitions it brought.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("schema %q not registered", name)
	}
	delete(r.entries, name)
	for defName, d := range r.defs {
		if d.owner == name {
			delete(r.defs, defName)
		}
	}
	r.rebuild()
	return nil
}

// Get returns a registered schema by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// List returns all registered schemas sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Resolver returns a resolver over every registered schema and definition.
// Schemas are addressable as #/$defs/<name>.
func (r *Registry) Resolver() *schema.Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolver
}

// Revision changes every time the set of schemas changes.
func (r *Registry) Revision() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// OnChange registers a callback run after every successful load.
func (r *Registry) OnChange(fn func(revision string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// OnError registers a callback run when a reload triggered by Watch fails.
func (r *Registry) OnError(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = append(r.onError, fn)
}

// Load replaces the registry contents with the schemas found in dir. On
// error the previous contents are kept.
func (r *Registry) Load(dir string) error {
	docs, err := schema.ParseDir(dir)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	staged := &Registry{entries: make(map[string]Entry), defs: make(map[string]defEntry)}
	now := time.Now()
	for _, doc := range docs {
		if conflicts := staged.detectConflicts(doc); len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		staged.add(doc, now)
	}

	r.mu.Lock()
	r.entries = staged.entries
	r.defs = staged.defs
	r.rebuild()
	revision := r.revision
	callbacks := append([]func(string){}, r.onChange...)
	r.mu.Unlock()

	r.logger.Info().
		Str("dir", dir).
		Int("schemas", len(docs)).
		Str("revision", revision).
		Msg("schemas loaded")

	for _, fn := range callbacks {
		fn(revision)
	}
	return nil
}

// Watch reloads dir whenever a schema file in it changes.
func (r *Registry) Watch(dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(watcher, dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	r.watcher = watcher

	go r.watchLoop(dir)

	r.logger.Info().Str("dir", dir).Msg("watching schema directory for changes")
	return nil
}

// Stop stops watching for changes. Calling it more than once is a no-op.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
}

func (r *Registry) watchLoop(dir string) {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !schema.IsSchemaFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			r.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")

			if err := r.Load(dir); err != nil {
				r.logger.Error().Err(err).Msg("schema reload failed, keeping previous schemas")
				r.mu.RLock()
				callbacks := append([]func(error){}, r.onError...)
				r.mu.RUnlock()
				for _, fn := range callbacks {
					fn(err)
				}
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("file watcher error")

		case <-r.stopCh:
			return
		}
	}
}

func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// add registers doc without checking for conflicts. Callers hold the lock.
func (r *Registry) add(doc schema.Document, now time.Time) {
	r.entries[doc.Name] = Entry{
		Name:     doc.Name,
		Source:   doc.Source,
		Node:     doc.Root,
		Revision: uuid.NewString(),
		LoadedAt: now,
	}
	if doc.Defs == nil {
		return
	}
	for _, name := range doc.Defs.Names() {
		node, err := doc.Defs.Lookup("#/$defs/" + name)
		if err != nil {
			continue
		}
		r.defs[name] = defEntry{owner: doc.Name, node: node}
	}
}

// rebuild recomputes the resolver and revision. Callers hold the lock.
func (r *Registry) rebuild() {
	named := make(map[string]*schema.Node, len(r.entries)+len(r.defs))
	for name, e := range r.entries {
		named[name] = e.Node
	}
	for name, d := range r.defs {
		named[name] = d.node
	}
	resolver, err := schema.NewNamedResolver(named)
	if err != nil {
		r.logger.Error().Err(err).Msg("build resolver")
		return
	}
	r.resolver = resolver
	r.revision = uuid.NewString()
}

// detectConflicts checks doc against the registry without modifying it.
func (r *Registry) detectConflicts(doc schema.Document) []Conflict {
	var conflicts []Conflict
	owner := func(name string) (string, bool) {
		if e, ok := r.entries[name]; ok {
			return e.Source, true
		}
		if d, ok := r.defs[name]; ok {
			return r.entries[d.owner].Source, true
		}
		return "", false
	}

	if src, taken := owner(doc.Name); taken {
		conflicts = append(conflicts, Conflict{Name: doc.Name, Sources: []string{src, doc.Source}})
	}
	for _, name := range doc.Defs.Names() {
		if name == doc.Name {
			conflicts = append(conflicts, Conflict{Name: name, Sources: []string{doc.Source}})
			continue
		}
		if src, taken := owner(name); taken {
			conflicts = append(conflicts, Conflict{Name: name, Sources: []string{src, doc.Source}})
		}
	}
	return conflicts
}

// Conflict is a schema or definition name claimed more than once.
type Conflict struct {
	Name    string
	Sources []string
}

func (c Conflict) Error() string {
	return fmt.Sprintf("%q claimed by %s", c.Name, strings.Join(c.Sources, ", "))
}

// ConflictError represents one or more name conflicts.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("schema name conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
