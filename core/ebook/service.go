package ebook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tshilobo/soko/core"
)

var ErrNotFound = errors.New("ebook not found")

type (
	Repository interface {
		CreateEbook(ctx context.Context, eb Ebook) (Ebook, error)
		// FilterEbooks applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title or Author.
		FilterEbooks(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Ebook, error)
		GetEbookByID(ctx context.Context, id string) (Ebook, error)
		UpdateEbook(ctx context.Context, eb Ebook) (Ebook, error)
		DeleteEbooksByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, ne NewEbook) (Ebook, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Ebook, error)
		GetByID(ctx context.Context, id string) (Ebook, error)
		Update(ctx context.Context, id string, ue UpdateEbook) (Ebook, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ne NewEbook) (Ebook, error) {
	now := time.Now().UTC()
	eb := Ebook{
		ID:          uuid.New().String(),
		Title:       ne.Title,
		Author:      ne.Author,
		Description: ne.Description,
		Price:       ne.Price,
		Format:      ne.Format,
		FileURL:     ne.FileURL,
		Stock:       ne.Stock,
		CoverURL:    ne.CoverURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEbook(ctx, eb)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Ebook, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterEbooks(ctx, *filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Ebook, error) {
	return svc.repo.GetEbookByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEbook) (Ebook, error) {
	orig, err := svc.repo.GetEbookByID(ctx, id)
	if err != nil {
		return Ebook{}, err
	}
	return svc.repo.UpdateEbook(ctx, ue.Apply(orig))
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteEbooksByID(ctx, ids...)
}
