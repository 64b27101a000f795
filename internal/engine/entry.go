package engine

import (
	"strings"
	"time"

	"github.com/tiercache/tiercache/internal/pattern"
	"github.com/tiercache/tiercache/pkg/types"
)

const largeEntryBytes = 100 * 1024

// deriveCategory classifies a key by its prefix. Unrecognized keys fall
// into the general category, which carries no TTL bias.
func deriveCategory(key string) types.Category {
	switch {
	case strings.HasPrefix(key, "user:"):
		return types.CategoryUserData
	case strings.HasPrefix(key, "session:"):
		return types.CategorySessionData
	case strings.HasPrefix(key, "config:"):
		return types.CategoryConfig
	case strings.HasPrefix(key, "tmp:"):
		return types.CategoryTemporary
	case strings.HasPrefix(key, "api:"):
		return types.CategoryAPIResponse
	default:
		return types.CategoryGeneral
	}
}

// derivePriority computes an entry's eviction priority on the 1..10 scale
// from its access history, size, and category. Hot and recently touched
// entries rank higher; bulky entries rank lower.
func derivePriority(size int64, category types.Category, pat *pattern.Pattern, now time.Time) int {
	priority := 5
	if pat != nil {
		if pat.Frequency(now) > 5 {
			priority += 2
		}
		if pat.Recency(now) > 0.7 {
			priority++
		}
	}
	if size > largeEntryBytes {
		priority -= 2
	}
	if category == types.CategoryConfig {
		priority++
	}

	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}
	return priority
}
