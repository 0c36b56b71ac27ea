package config

import (
	"fmt"
	"strings"
)

// Validate checks ranges and dictionary entries. Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Search.Limit <= 0 || c.Search.Limit > 1000 {
		return fmt.Errorf("search.limit must be in [1, 1000] (got %d)", c.Search.Limit)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be >= 0 (got %d)", c.Search.CacheSize)
	}
	if c.Search.WaitTimeout <= 0 {
		return fmt.Errorf("search.wait_timeout must be > 0 (got %s)", c.Search.WaitTimeout)
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session.max_sessions must be > 0 (got %d)", c.Session.MaxSessions)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Dictionaries))
	for i, d := range c.Dictionaries {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("dictionaries[%d].id is required", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("dictionaries[%d]: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true
		if strings.ContainsRune(d.ID, ':') {
			return fmt.Errorf("dictionaries[%d]: id %q must not contain ':'", i, d.ID)
		}
		if strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("dictionaries[%d] (%s): path is required", i, d.ID)
		}
	}
	return nil
}

// Dictionary returns the dictionary entry with the given id.
func (c *Config) Dictionary(id string) (DictConfig, bool) {
	for _, d := range c.Dictionaries {
		if d.ID == id {
			return d, true
		}
	}
	return DictConfig{}, false
}
