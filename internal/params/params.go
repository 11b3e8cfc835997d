package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// URL: /reviews?page=2&per_page=30
// → ParsePagination() → Pagination{PerPage:30, CurrentPage:2, Offset:30}
// → SQL: SELECT ... LIMIT 30 OFFSET 30
// → DB returns data + total count
// → ComputeMeta(total) → fills Total, LastPage, HasMore
// → JSON response with data + pagination metadata
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	HasMore     bool `json:"has_more"`

	Offset int `json:"-"` // SQL OFFSET value
}

// ParsePagination parses ?per_page=...&page=... safely. Careful, keys are
// case sensitive.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		PerPage:     15, // default
		CurrentPage: 1,
	}

	if perPageStr := strings.TrimSpace(q.Get("per_page")); perPageStr != "" {
		if perPage, err := strconv.Atoi(perPageStr); err == nil {
			switch {
			case perPage <= 0:
				p.PerPage = 15
			case perPage > 50:
				p.PerPage = 50
			default:
				p.PerPage = perPage
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.CurrentPage = page
		}
	}

	p.Offset = (p.CurrentPage - 1) * p.PerPage
	return p
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	p.LastPage = 1
	if p.PerPage > 0 && total > 0 {
		p.LastPage = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	p.HasMore = (p.CurrentPage * p.PerPage) < total
}
