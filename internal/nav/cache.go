package nav

// DefaultCacheSize bounds how many fetched pages are kept in memory.
const DefaultCacheSize = 10

// PageCache maps absolute URLs to raw HTML bodies. It is bounded: once
// full, the oldest-inserted entry is evicted first (strict FIFO, not
// LRU — a hit does not refresh an entry's position).
//
// The cache is not safe for concurrent use; the Router serializes
// access to it.
type PageCache struct {
	max   int
	order []string
	pages map[string]string
}

func NewPageCache(max int) *PageCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &PageCache{
		max:   max,
		pages: make(map[string]string, max),
	}
}

func (c *PageCache) Get(url string) (string, bool) {
	body, ok := c.pages[url]
	return body, ok
}

func (c *PageCache) Contains(url string) bool {
	_, ok := c.pages[url]
	return ok
}

// Put stores a page body, evicting the oldest entry if the bound would
// be exceeded. Re-inserting an existing URL replaces the body but keeps
// its original insertion position.
func (c *PageCache) Put(url, body string) {
	if _, ok := c.pages[url]; ok {
		c.pages[url] = body
		return
	}
	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.pages, oldest)
	}
	c.order = append(c.order, url)
	c.pages[url] = body
}

func (c *PageCache) Clear() {
	c.order = c.order[:0]
	c.pages = make(map[string]string, c.max)
}

func (c *PageCache) Len() int {
	return len(c.order)
}
