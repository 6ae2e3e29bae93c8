package database

import (
	"github.com/rpupo63/inkwell-backend/errs"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is a validated skip/limit window.
type Page struct {
	Skip  int
	Limit int
}

// NewPage validates skip >= 0 and 1 <= limit <= MaxLimit.
func NewPage(skip, limit int) (Page, error) {
	if skip < 0 {
		return Page{}, errs.NewInvalidFieldError("skip", "skip must be zero or greater")
	}
	if limit < 1 || limit > MaxLimit {
		return Page{}, errs.NewInvalidFieldError("limit", "limit must be between 1 and 100")
	}
	return Page{Skip: skip, Limit: limit}, nil
}

// DefaultPage is the first page with the default limit.
func DefaultPage() Page {
	return Page{Skip: 0, Limit: DefaultLimit}
}

// PageInfo is the pagination envelope returned with list results.
type PageInfo struct {
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Info reports has_next as skip+limit < total without overflowing near MaxInt.
func (p Page) Info(total int64) PageInfo {
	return PageInfo{
		TotalCount:  total,
		HasNext:     int64(p.Skip) < total && total-int64(p.Skip) > int64(p.Limit),
		HasPrevious: p.Skip > 0,
	}
}

// Window returns the [start, end) bounds of the page within n items.
func (p Page) Window(n int) (int, int) {
	start := p.Skip
	if start > n {
		start = n
	}
	end := n
	if n-start > p.Limit {
		end = start + p.Limit
	}
	return start, end
}
