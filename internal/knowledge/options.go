package knowledge

import "time"

// searchConfig holds the resolved search parameters.
type searchConfig struct {
	topK        int
	sourceTable string
	timeout     time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets how many chunks to return. Values below 1 keep the
// default.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k >= 1 {
			c.topK = k
		}
	}
}

// WithSourceTable restricts hits to chunks ingested from one table.
func WithSourceTable(table string) SearchOption {
	return func(c *searchConfig) { c.sourceTable = table }
}

// WithSearchTimeout bounds the embedding call plus the vector query.
func WithSearchTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
