package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// SortField names a field to order by. A "-" prefix in the query parameter
// marks a field descending.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// ParseSort parses a comma-separated sort expression such as
// "name,-created_at" into sort fields. Empty entries are dropped.
func ParseSort(expr string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		if rest, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: rest, Desc: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

// PageRequest is a client's request for one page of a collection.
type PageRequest struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Search   string      `json:"search,omitempty"`
	Sort     []SortField `json:"sort,omitempty"`
}

// Normalize clamps the request to valid values under cfg.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// Offset is the number of records preceding the requested page.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// Window clamps the request against a collection of n items and returns
// the half-open index range [lo, hi) of the requested page.
func (r *PageRequest) Window(n int) (lo, hi int) {
	lo = r.Offset()
	if lo > n {
		lo = n
	}
	hi = lo + r.PageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}

// FromQuery parses page, page_size, search, and sort query parameters into
// a request normalized under cfg.
func FromQuery(values url.Values, cfg Config) PageRequest {
	page, _ := strconv.Atoi(values.Get("page"))
	pageSize, _ := strconv.Atoi(values.Get("page_size"))

	req := PageRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   values.Get("search"),
		Sort:     ParseSort(values.Get("sort")),
	}
	req.Normalize(cfg)
	return req
}

// PageResult holds one page of data along with paging metadata.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult wraps a page of data with calculated metadata.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Page slices one page out of an in-memory collection.
func Page[T any](items []T, req PageRequest) PageResult[T] {
	lo, hi := req.Window(len(items))
	return NewPageResult(items[lo:hi], len(items), req.Page, req.PageSize)
}
