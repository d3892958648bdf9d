package pgdb

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/emberlog/emberlog/internal/storage/storagetypes"
)

func BuildLogQueryFilters(filter storagetypes.Filter) []sq.Sqlizer {
	conds := []sq.Sqlizer{}

	if filter.Level != "" {
		conds = append(conds, sq.Eq{"level": string(filter.Level)})
	}
	if filter.Event != "" {
		conds = append(conds, sq.ILike{"event": "%" + filter.Event + "%"})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, sq.Or{
			sq.ILike{"message": pattern},
			sq.ILike{"error": pattern},
		})
	}
	if !filter.Since.IsZero() {
		conds = append(conds, sq.GtOrEq{"ts": filter.Since.UTC()})
	}
	if !filter.Until.IsZero() {
		conds = append(conds, sq.LtOrEq{"ts": filter.Until.UTC()})
	}

	return conds
}
