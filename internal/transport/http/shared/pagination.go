package shared

import (
	"net/http"
	"strconv"
)

const TotalCountHeader = "X-Total-Count"

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset, or page/pageSize with pages counted
// from 1. Malformed values fall back to the defaults and limit is capped at
// maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	limit := positive(q.Get("limit"), 0)
	if limit == 0 {
		limit = positive(q.Get("pageSize"), defaultLimit)
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	} else if page := positive(q.Get("page"), 1); page > 1 {
		offset = (page - 1) * limit
	}
	return Pagination{Limit: limit, Offset: offset}
}

func positive(raw string, fallback int) int {
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func SetTotalCount(w http.ResponseWriter, total int) {
	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
}
