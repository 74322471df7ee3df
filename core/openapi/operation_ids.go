package openapi

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var nonIdentChars = regexp.MustCompile(`[^a-z0-9]+`)

// OperationIDs memoizes generated operation ids. A route keeps its id for
// the life of the cache and no two routes share one.
type OperationIDs struct {
	mu    sync.Mutex
	byKey map[string]string
	taken map[string]bool
}

// NewOperationIDs creates an empty cache.
func NewOperationIDs() *OperationIDs {
	return &OperationIDs{
		byKey: make(map[string]string),
		taken: make(map[string]bool),
	}
}

// Get returns the operation id for method and path, generating it on
// first use. Ids look like get_users_id; clashes get a numeric suffix.
func (c *OperationIDs) Get(method, path string) string {
	method = strings.ToLower(method)
	key := method + " " + path

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byKey[key]; ok {
		return id
	}

	name := nonIdentChars.ReplaceAllString(strings.ToLower(path), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "root"
	}
	base := method + "_" + name

	id := base
	for n := 2; c.taken[id]; n++ {
		id = base + "_" + strconv.Itoa(n)
	}
	c.byKey[key] = id
	c.taken[id] = true
	return id
}

// Len returns the number of cached ids.
func (c *OperationIDs) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// Reset forgets every id.
func (c *OperationIDs) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[string]string)
	c.taken = make(map[string]bool)
}
