package pagination

import (
	"net/url"
	"sort"
	"strconv"
)

// Sort directions accepted by the backend.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

// reserved query keys; everything else in a request becomes an extra filter.
var reserved = map[string]struct{}{
	"page": {}, "limit": {}, "status": {}, "search": {}, "sortBy": {}, "sortOrder": {},
}

// Params is the filter state a list view owns: page window plus filters.
// Changing any field means a new fetch.
type Params struct {
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
	Status    string            `json:"status,omitempty"`
	Search    string            `json:"search,omitempty"`
	SortBy    string            `json:"sortBy,omitempty"`
	SortOrder string            `json:"sortOrder,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
}

// DefaultParams returns the first page, newest first.
func DefaultParams() Params {
	return Params{
		Page:      1,
		Limit:     10,
		SortBy:    "createdAt",
		SortOrder: SortDesc,
	}
}

// FromValues overlays query values on base, ignoring values that do not
// parse.
func FromValues(q url.Values, base Params) Params {
	p := base

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	if v := q.Get("status"); v != "" {
		p.Status = v
	}
	if v := q.Get("search"); v != "" {
		p.Search = v
	}
	if v := q.Get("sortBy"); v != "" {
		p.SortBy = v
	}
	if v := q.Get("sortOrder"); v == SortAsc || v == SortDesc {
		p.SortOrder = v
	}

	for key, vals := range q {
		if _, ok := reserved[key]; ok || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if p.Filters == nil {
			p.Filters = make(map[string]string)
		}
		p.Filters[key] = vals[0]
	}

	return p
}

// Query renders the params as backend query values. Empty filters are omitted.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		q.Set("sortOrder", p.SortOrder)
	}

	keys := make([]string, 0, len(p.Filters))
	for k := range p.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := p.Filters[k]; v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Clone returns a copy that shares nothing with p.
func (p Params) Clone() Params {
	cp := p
	if p.Filters != nil {
		cp.Filters = make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			cp.Filters[k] = v
		}
	}
	return cp
}

// Pagination is the page metadata reported by the backend for the last
// successful list fetch.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// New computes metadata for a window of totalItems.
func New(totalItems int, params Params) Pagination {
	perPage := params.Limit
	if perPage <= 0 {
		perPage = DefaultParams().Limit
	}
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return Pagination{
		CurrentPage:  params.Page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: perPage,
	}
}

// HasNext reports whether a page after the current one exists.
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// HasPrev reports whether a page before the current one exists.
func (p Pagination) HasPrev() bool {
	return p.CurrentPage > 1
}
