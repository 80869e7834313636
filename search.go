package repochat

// SearchType selects the kind of answer the index API produces.
type SearchType string

// Search types supported by the index API.
const (
	SearchSummaries  SearchType = "SUMMARIES"  // high-level overview of code
	SearchInsights   SearchType = "INSIGHTS"   // key implementation details
	SearchChunks     SearchType = "CHUNKS"     // relevant code segments
	SearchCompletion SearchType = "COMPLETION" // contextual generated responses
)

// SearchTypes returns all supported search types.
func SearchTypes() []SearchType {
	return []SearchType{SearchSummaries, SearchInsights, SearchChunks, SearchCompletion}
}

// Valid returns true if t is a known search type.
func (t SearchType) Valid() bool {
	switch t {
	case SearchSummaries, SearchInsights, SearchChunks, SearchCompletion:
		return true
	}
	return false
}

// SearchHit is a single match returned by the index API.
type SearchHit struct {
	RepositoryID string  `json:"repositoryId"`
	Path         string  `json:"path"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
}

// SearchResult is the index API's answer to a search query.
type SearchResult struct {
	Answer string      `json:"answer"`
	Hits   []SearchHit `json:"hits,omitempty"`
}

// SearchCache caches search results for identical queries.
// Implementations bound both entry count and entry age.
type SearchCache interface {
	// Get returns the cached result for the query, if present and fresh.
	Get(query string, searchType SearchType) (*SearchResult, bool)

	// Set stores a result for the query.
	Set(query string, searchType SearchType, result *SearchResult)

	// Clear drops all cached entries.
	Clear()
}
