// Package registry provides the in-memory object cache that backs the
// codec's entity resolution. Resolving an id hands out a handle
// immediately (a stub when the object has never been seen); loading and
// saving go through the persistent store and the codec.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/jsonx/pkg/classpath"
	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
	"github.com/mesh-intelligence/jsonx/pkg/webobj"
)

// ErrNotRecord is returned when a stored state decodes to something other
// than a property record.
var ErrNotRecord = errors.New("stored state is not a record")

// Store is the narrow persistence interface the cache needs. Data is
// JSONx text; ids are assigned by the store on insert.
type Store interface {
	Insert(data string) (int64, error)
	Get(id int64) (string, error)
	Update(id int64, data string) error
	Delete(id int64) error
}

// Cache is the object registry: one handle per id for the life of the
// process (or until evicted), shared by everything that resolves the id.
// It implements jsonx.Resolver, so the codec it owns defers reference
// loading back to it.
type Cache struct {
	mu      sync.RWMutex
	objects map[int64]*webobj.Object
	codec   *jsonx.Codec
	store   Store
}

var _ jsonx.Resolver = (*Cache)(nil)

// New returns a Cache over the given classpath registry and store. The
// cache builds its own codec wired back to itself, so references inside
// stored states resolve through the same cache.
func New(classes *classpath.Registry, store Store) *Cache {
	c := &Cache{
		objects: make(map[int64]*webobj.Object),
		store:   store,
	}
	c.codec = jsonx.New(classes, c)
	return c
}

// Codec returns the codec wired to this cache.
func (c *Cache) Codec() *jsonx.Codec {
	return c.codec
}

// ResolveEntity returns the cached handle for id, or registers and
// returns an unloaded stub. It never touches the store; materialization
// is the caller's business, via Load.
func (c *Cache) ResolveEntity(id int64) (jsonx.Ref, error) {
	obj, err := c.handle(id)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *Cache) handle(id int64) (*webobj.Object, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", webobj.ErrInvalidID, id)
	}

	c.mu.RLock()
	obj, ok := c.objects[id]
	c.mu.RUnlock()
	if ok {
		return obj, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if obj, ok = c.objects[id]; ok {
		return obj, nil
	}
	obj = webobj.Stub(id)
	c.objects[id] = obj
	return obj, nil
}

// Load materializes the object with the given id. Already-loaded handles
// return immediately; stubs are filled from the store through the codec.
func (c *Cache) Load(id int64) (*webobj.Object, error) {
	obj, err := c.handle(id)
	if err != nil {
		return nil, err
	}
	if obj.Loaded() {
		return obj, nil
	}

	data, err := c.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load object %d: %w", id, err)
	}
	v, err := c.codec.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("load object %d: %w", id, err)
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("object %d: %w (got %T)", id, ErrNotRecord, v)
	}
	obj.SetData(rec)
	return obj, nil
}

// Save encodes the object's data and persists it. New objects get their
// id from the store; saved objects are registered in the cache.
func (c *Cache) Save(obj *webobj.Object) (int64, error) {
	data, err := c.codec.Marshal(obj.Data())
	if err != nil {
		return 0, fmt.Errorf("encode object: %w", err)
	}

	if obj.HasID() {
		if err := c.store.Update(obj.ID(), string(data)); err != nil {
			return 0, fmt.Errorf("save object %d: %w", obj.ID(), err)
		}
	} else {
		id, err := c.store.Insert(string(data))
		if err != nil {
			return 0, fmt.Errorf("save object: %w", err)
		}
		if err := obj.AssignID(id); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	c.objects[obj.ID()] = obj
	c.mu.Unlock()
	return obj.ID(), nil
}

// Delete removes the object from the store and evicts its handle.
func (c *Cache) Delete(id int64) error {
	if err := c.store.Delete(id); err != nil {
		return fmt.Errorf("delete object %d: %w", id, err)
	}
	c.Evict(id)
	return nil
}

// Evict drops the cached handle for id, if any. Outstanding references
// keep the old handle; the next resolution gets a fresh stub.
func (c *Cache) Evict(id int64) {
	c.mu.Lock()
	delete(c.objects, id)
	c.mu.Unlock()
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
