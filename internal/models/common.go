package models

import "time"

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Paging carries the paging arguments shared by list filters.
type Paging struct {
	Page     int
	PageSize int
}

// Normalize clamps paging to page >= 1 and 1..100 rows, defaulting to 20.
func (p Paging) Normalize() (page, size, offset int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	size = p.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}

// Pagination builds response metadata for total rows.
func (p Paging) Pagination(total int) *Pagination {
	page, size, _ := p.Normalize()
	return &Pagination{Page: page, PageSize: size, TotalCount: total}
}

// RequestMeta describes the client behind a request for audit purposes.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Timestamps are embedded by rows tracking creation and modification.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
