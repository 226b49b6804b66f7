// Package pagination implements page/perPage list windows shared by every
// list endpoint.
package pagination

import "gorm.io/gorm"

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PageRequest is bound from the page and perPage query parameters.
type PageRequest struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"perPage" json:"per_page"`
}

// Defaults clamps the request into a valid window.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset returns (page-1)*perPage.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageResponse is the list envelope returned by services.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse builds a PageResponse, normalising a nil slice to empty.
func NewPageResponse[T any](data []T, page, perPage int, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if perPage > 0 {
		totalPages = int((totalItems + int64(perPage) - 1) / int64(perPage))
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Paginate is a gorm scope applying the request's offset and limit.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PerPage)
	}
}
