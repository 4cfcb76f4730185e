package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/ebook"
)

type ebookRepository struct {
	db *ebookTable
}

var _ ebook.Repository = (*ebookRepository)(nil) // interface compliance check

func NewEbookRepository(db *DB) ebook.Repository {
	return &ebookRepository{db: db.ebook}
}

func (repo *ebookRepository) query() []ebook.Ebook {
	ebooks := make([]ebook.Ebook, 0, len(repo.db.table))
	for _, eb := range repo.db.table {
		ebooks = append(ebooks, *eb)
	}
	sort.Slice(ebooks, func(i, j int) bool { return ebooks[i].CreatedAt.After(ebooks[j].CreatedAt) })
	return ebooks
}

func (repo *ebookRepository) CreateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[eb.ID] = &eb
	return eb, nil
}

func (repo *ebookRepository) FilterEbooks(ctx context.Context, filter ebook.QueryFilter, ordering ...core.DBOrdering) ([]ebook.Ebook, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ebooks := repo.query()

	if filter.Search != "" {
		var filtered []ebook.Ebook
		search := strings.ToLower(filter.Search)
		for _, eb := range ebooks {
			if strings.Contains(strings.ToLower(eb.Title), search) ||
				strings.Contains(strings.ToLower(eb.Author), search) {
				filtered = append(filtered, eb)
			}
		}
		ebooks = filtered
	}
	if filter.Format != "" {
		var filtered []ebook.Ebook
		for _, eb := range ebooks {
			if eb.Format == filter.Format {
				filtered = append(filtered, eb)
			}
		}
		ebooks = filtered
	}
	if filter.IsPublished != nil {
		var filtered []ebook.Ebook
		for _, eb := range ebooks {
			if eb.IsPublished == *filter.IsPublished {
				filtered = append(filtered, eb)
			}
		}
		ebooks = filtered
	}

	return ebooks, nil
}

func (repo *ebookRepository) GetEbookByID(ctx context.Context, id string) (ebook.Ebook, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if eb, ok := repo.db.table[id]; ok {
		return *eb, nil
	}
	return ebook.Ebook{}, ebook.ErrNotFound
}

func (repo *ebookRepository) UpdateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[eb.ID]; !ok {
		return ebook.Ebook{}, ebook.ErrNotFound
	}
	repo.db.table[eb.ID] = &eb
	return eb, nil
}

func (repo *ebookRepository) DeleteEbooksByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
