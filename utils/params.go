package utils

import (
	"net/http"
	"strconv"
)

type QueryOptions struct {
	Page     int
	Limit    int
	CafeID   string
	Type     string
	Status   string
	Date     string
	Inactive bool
}

func (q QueryOptions) Skip() int64 {
	return int64((q.Page - 1) * q.Limit)
}

func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	return QueryOptions{
		Page:     page,
		Limit:    limit,
		CafeID:   q.Get("cafe_id"),
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Date:     q.Get("date"),
		Inactive: q.Get("include_inactive") == "true",
	}
}
