package normalize

import (
	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

var totalKeys = []string{"total", "Total", "totalCount", "total_count"}

// paginationScope is the lookup chain for one pagination field: explicit
// top-level field, then the nested pagination object, then the container the
// items were nested under. The backend's paging envelope differs per endpoint,
// so reconciliation degrades to the best available signal instead of failing.
type paginationScope struct {
	levels []map[string]any
}

func newPaginationScope(raw any, container map[string]any) paginationScope {
	var levels []map[string]any
	if top, ok := asObject(raw); ok {
		levels = append(levels, top)
		if nested, ok := asObject(top["pagination"]); ok {
			levels = append(levels, nested)
		}
	}
	if container != nil {
		levels = append(levels, container)
		if nested, ok := asObject(container["pagination"]); ok {
			levels = append(levels, nested)
		}
	}
	return paginationScope{levels: levels}
}

func (s paginationScope) int(keys ...string) (int, bool) {
	for _, level := range s.levels {
		if n, ok := pickInt(level, keys...); ok {
			return n, true
		}
	}
	return 0, false
}

func (s paginationScope) bool(keys ...string) (bool, bool) {
	for _, level := range s.levels {
		if b, ok := pickBool(level, keys...); ok {
			return b, true
		}
	}
	return false, false
}

// ReconcilePagination derives page/limit/total/totalPages/hasNext from
// whichever subset of paging fields the backend actually returned. observed
// is the item count of the decoded list and backs the defaults. An explicit
// hasNext=true without a total signals "at least one more page exists", which
// is encoded as page*limit+1.
func ReconcilePagination(raw any, container map[string]any, observed int) domain.Pagination {
	scope := newPaginationScope(raw, container)

	page, ok := scope.int("page", "Page", "currentPage")
	if !ok || page <= 0 {
		page = 1
	}

	limit, ok := scope.int("limit", "Limit", "pageSize", "perPage")
	if !ok {
		limit = observed
	}
	if limit <= 0 {
		limit = 10
	}

	hasNextExplicit, hasNextPresent := scope.bool("hasNext", "has_next", "HasNext")

	total, ok := scope.int(totalKeys...)
	if !ok {
		if hasNextPresent && hasNextExplicit {
			total = page*limit + 1
		} else {
			total = observed
		}
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	hasNext := page < totalPages
	if hasNextPresent {
		hasNext = hasNextExplicit
	}

	return domain.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    hasNext,
	}
}
