package storagetypes

import (
	"time"

	"github.com/emberlog/emberlog/internal/domain"
)

const DefaultLimit = 50

// Filter selects log entries for the query path. Zero values mean
// "no constraint". Results are always ordered newest-first.
type Filter struct {
	Level  domain.Level
	Event  string // substring match on event name
	Search string // substring match on message or error summary
	Since  time.Time
	Until  time.Time
	Offset int
	Limit  int
}

// EffectiveLimit returns Limit or the default page size when unset.
func (f Filter) EffectiveLimit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return DefaultLimit
}
