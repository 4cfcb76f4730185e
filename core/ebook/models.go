package ebook

import (
	"time"

	"github.com/tshilobo/soko/core"
)

// Formats
const (
	FormatDigital = "DIGITAL"
	FormatPrint   = "PRINT"
)

type Ebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Format      string    `json:"format"`
	FileURL     string    `json:"file_url,omitempty"` // download link, digital only
	Stock       int       `json:"stock"`              // print only; -1 = untracked
	CoverURL    string    `json:"cover_url,omitempty"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// RequiresShipping reports whether buying this ebook ships a physical copy.
func (e Ebook) RequiresShipping() bool {
	return e.Format == FormatPrint
}

// NewEbook contains information needed to create a new Ebook.
type NewEbook struct {
	Title       string  `json:"title" validate:"required"`
	Author      string  `json:"author" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Format      string  `json:"format" validate:"required,oneof=DIGITAL PRINT"`
	FileURL     string  `json:"file_url" validate:"omitempty,url"`
	Stock       int     `json:"stock" validate:"omitempty,gte=-1"`
	CoverURL    string  `json:"cover_url" validate:"omitempty,url"`
}

func (ne *NewEbook) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Author = core.CleanString(ne.Author)
	return core.Validate.Struct(ne)
}

// UpdateEbook defines what information may be provided to modify an existing Ebook.
type UpdateEbook struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Format      string   `json:"format" validate:"omitempty,oneof=DIGITAL PRINT"`
	FileURL     *string  `json:"file_url" validate:"omitempty,url"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=-1"`
	CoverURL    *string  `json:"cover_url" validate:"omitempty,url"`
	IsPublished *bool    `json:"is_published"`
}

func (ue *UpdateEbook) Validate() error {
	ue.Title = core.CleanString(ue.Title)
	ue.Author = core.CleanString(ue.Author)
	return core.Validate.Struct(ue)
}

// Apply merges the update into an existing Ebook.
func (ue *UpdateEbook) Apply(eb Ebook) Ebook {
	if ue.Title != "" {
		eb.Title = ue.Title
	}
	if ue.Author != "" {
		eb.Author = ue.Author
	}
	if ue.Description != nil {
		eb.Description = *ue.Description
	}
	if ue.Price != nil {
		eb.Price = *ue.Price
	}
	if ue.Format != "" {
		eb.Format = ue.Format
	}
	if ue.FileURL != nil {
		eb.FileURL = *ue.FileURL
	}
	if ue.Stock != nil {
		eb.Stock = *ue.Stock
	}
	if ue.CoverURL != nil {
		eb.CoverURL = *ue.CoverURL
	}
	if ue.IsPublished != nil {
		eb.IsPublished = *ue.IsPublished
	}
	eb.UpdatedAt = time.Now().UTC()
	return eb
}

type QueryFilter struct {
	Search      string `query:"search"`
	Format      string `query:"format"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
