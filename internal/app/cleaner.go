package app

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

var (
	reBracketed = regexp.MustCompile(`\[.*?\]`)
	// a URL token ends at any Unicode space, not just ASCII ones
	reURL         = regexp.MustCompile(`(?:https|http|www)[^\s\v\x{85}\p{Z}]+`)
	reMention     = regexp.MustCompile(`@\w+|#`)
	reUnprinted   = regexp.MustCompile(`[^\x20-\x7E\x{A0}-\x{D7FF}\x{E000}-\x{FDCF}\x{FDF0}-\x{FFFD}]+`)
	rePunctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}]`)
)

// Cleaner normalizes free text. Results are memoized by exact input in an
// unbounded map (no eviction); clean is pure so cached values never go stale.
type Cleaner struct {
	mu   sync.RWMutex
	memo map[string]string
}

func NewCleaner() *Cleaner { return &Cleaner{memo: make(map[string]string)} }

// Clean returns "" for nil and the cleaned text otherwise. Safe for concurrent use.
func (c *Cleaner) Clean(s *string) string {
	if s == nil {
		return ""
	}
	c.mu.RLock()
	v, ok := c.memo[*s]
	c.mu.RUnlock()
	if ok {
		return v
	}
	v = clean(*s)
	c.mu.Lock()
	c.memo[*s] = v
	c.mu.Unlock()
	return v
}

// Len is the number of memoized inputs.
func (c *Cleaner) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memo)
}

func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return r
		}
		if unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	s = strings.ToLower(s)
	s = reBracketed.ReplaceAllString(s, "")
	s = reURL.ReplaceAllString(s, "")
	s = reMention.ReplaceAllString(s, "")
	s = reUnprinted.ReplaceAllString(s, "")
	s = rePunctuation.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
