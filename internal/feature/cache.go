package feature

// Cache is a read-only lookup of a loaded feature collection by gid.
type Cache struct {
	layer    string
	features []*Feature
	byGID    map[int]*Feature
}

// NewCache indexes features by gid. When two features share a gid the
// first one wins.
func NewCache(layer string, features []*Feature) *Cache {
	c := &Cache{
		layer:    layer,
		features: features,
		byGID:    make(map[int]*Feature, len(features)),
	}
	for _, f := range features {
		if _, exists := c.byGID[f.GID]; exists {
			continue
		}
		c.byGID[f.GID] = f
	}
	return c
}

// Layer returns the layer title the cache was built for.
func (c *Cache) Layer() string {
	if c == nil {
		return ""
	}
	return c.layer
}

// Get returns the feature with the given gid. A missing gid is not an
// error; callers render a fallback.
func (c *Cache) Get(gid int) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	f, ok := c.byGID[gid]
	return f, ok
}

// GetMany resolves gids in order, skipping unknown ones.
func (c *Cache) GetMany(gids []int) []*Feature {
	out := make([]*Feature, 0, len(gids))
	for _, gid := range gids {
		if f, ok := c.Get(gid); ok {
			out = append(out, f)
		}
	}
	return out
}

// All returns the features in load order.
func (c *Cache) All() []*Feature {
	if c == nil {
		return nil
	}
	return c.features
}

// Len returns the number of cached features.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}
