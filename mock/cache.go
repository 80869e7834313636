package mock

import "github.com/fwojciec/repochat"

var _ repochat.SearchCache = (*SearchCache)(nil)

// SearchCache is a mock implementation of repochat.SearchCache.
type SearchCache struct {
	GetFn   func(query string, searchType repochat.SearchType) (*repochat.SearchResult, bool)
	SetFn   func(query string, searchType repochat.SearchType, result *repochat.SearchResult)
	ClearFn func()
}

func (c *SearchCache) Get(query string, searchType repochat.SearchType) (*repochat.SearchResult, bool) {
	return c.GetFn(query, searchType)
}

func (c *SearchCache) Set(query string, searchType repochat.SearchType, result *repochat.SearchResult) {
	c.SetFn(query, searchType, result)
}

func (c *SearchCache) Clear() {
	c.ClearFn()
}
