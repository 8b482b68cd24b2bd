package domain

import "time"

// ObjectHandle references one stored object of a photo; the transport maps
// it to a retrieval URL.
type ObjectHandle struct {
	PhotoID PhotoID `json:"photo_id"`
	Role    Role    `json:"role"`
}

type PhotoView struct {
	ID               PhotoID      `json:"id"`
	OriginalFilename string       `json:"original_filename"`
	FileSize         int64        `json:"file_size"`
	Thumbnail        ObjectHandle `json:"thumbnail"`
	Original         ObjectHandle `json:"original"`
}

type Pagination struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	TotalPhotos int  `json:"total_photos"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

type PhotoPage struct {
	Photos     []PhotoView `json:"photos"`
	Pagination Pagination  `json:"pagination"`
}

// NewPagination computes the page window; pages past the end are valid and empty.
func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{
		Page:        page,
		PerPage:     perPage,
		TotalPhotos: total,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// Offset of the first item in the page window.
func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// Blob is a retrieved object ready to be served.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
	ModTime     time.Time
}
