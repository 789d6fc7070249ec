package store

// ListCache maps list idempotency keys to TMDB list ids so reruns reuse lists.
type ListCache struct {
	path  string
	lists map[string]int
}

// OpenListCache loads the list cache at path.
func OpenListCache(path string) (*ListCache, error) {
	c := &ListCache{path: path, lists: make(map[string]int)}
	if err := readJSON(path, &c.lists); err != nil {
		return nil, err
	}
	if c.lists == nil {
		c.lists = make(map[string]int)
	}
	return c, nil
}

// Get returns the list id stored under key.
func (c *ListCache) Get(key string) (int, bool) {
	id, ok := c.lists[key]
	return id, ok
}

// Put stores id under key and persists the cache.
func (c *ListCache) Put(key string, id int) error {
	c.lists[key] = id
	return writeJSON(c.path, c.lists)
}

// Len is the number of cached lists.
func (c *ListCache) Len() int { return len(c.lists) }
