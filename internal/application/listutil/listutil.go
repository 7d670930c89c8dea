// Package listutil parses list query parameters shared by every list endpoint
// and computes pagination metadata for responses.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 25

// MaxPerPage caps per_page for JSON clients.
const MaxPerPage = 200

// DateLayout is the query-string date format.
const DateLayout = "2006-01-02"

// Params carries list parameters parsed from a request.
type Params struct {
	Page    int
	PerPage int
	Sort    string
	Dir     string // "asc" or "desc"
	Search  string
	Filters map[string]string
}

// Parse extracts page, per_page, sort, dir, q and the named filters.
// Sort keys not present in sortable are dropped.
// POST: Page >= 1, 1 <= PerPage <= MaxPerPage, Dir is "asc" or "desc"
func Parse(q url.Values, sortable map[string]string, filterKeys ...string) Params {
	p := Params{
		Page:    atoiDefault(q.Get("page"), 1),
		PerPage: atoiDefault(q.Get("per_page"), DefaultPerPage),
		Sort:    q.Get("sort"),
		Dir:     strings.ToLower(q.Get("dir")),
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if _, ok := sortable[p.Sort]; !ok {
		p.Sort = ""
	}
	if p.Dir != "desc" {
		p.Dir = "asc"
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			p.Filters[key] = v
		}
	}
	return p
}

// Offset returns the SQL OFFSET for the requested page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: TotalPages >= 1; Page clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), totalPages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// HasNext reports whether a later page exists.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (p PageInfo) HasPrev() bool {
	return p.Page > 1
}

// PageNumbers returns at most five page numbers centred on the current page.
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	start := max(p.Page-maxButtons/2, 1)
	end := min(start+maxButtons-1, p.TotalPages)
	start = max(end-maxButtons+1, 1)
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ParseDate parses a YYYY-MM-DD query value in UTC. Empty input gives the
// zero time and no error.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ParseDays parses a positive day count, falling back to def and capping at
// limit.
func ParseDays(s string, def, limit int) int {
	n := atoiDefault(s, def)
	if n < 1 {
		return def
	}
	return min(n, limit)
}

// OneOf returns v when it is in allowed, otherwise "".
func OneOf(v string, allowed []string) string {
	if slices.Contains(allowed, v) {
		return v
	}
	return ""
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
