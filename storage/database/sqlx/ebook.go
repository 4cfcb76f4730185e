package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/ebook"
)

type ebookRepository struct {
	db *sqlx.DB
}

var _ ebook.Repository = (*ebookRepository)(nil) // interface compliance check

func NewEbookRepository(db *sqlx.DB) *ebookRepository {
	return &ebookRepository{db: db}
}

type ebookRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Author      string    `db:"author"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Format      string    `db:"format"`
	CoverURL    string    `db:"cover_url"`
	FileURL     string    `db:"file_url"`
	Stock       int       `db:"stock"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func (repo ebookRepository) row(eb ebook.Ebook) ebookRow {
	return ebookRow{
		ID:          eb.ID,
		Title:       eb.Title,
		Author:      eb.Author,
		Description: eb.Description,
		Price:       eb.Price,
		Format:      eb.Format,
		CoverURL:    eb.CoverURL,
		FileURL:     eb.FileURL,
		Stock:       eb.Stock,
		IsPublished: eb.IsPublished,
		CreatedAt:   null.NewTime(eb.CreatedAt.UTC(), !eb.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(eb.UpdatedAt.UTC(), !eb.UpdatedAt.IsZero()),
	}
}

func (repo ebookRepository) unrow(row ebookRow) ebook.Ebook {
	return ebook.Ebook{
		ID:          row.ID,
		Title:       row.Title,
		Author:      row.Author,
		Description: row.Description,
		Price:       row.Price,
		Format:      row.Format,
		CoverURL:    row.CoverURL,
		FileURL:     row.FileURL,
		Stock:       row.Stock,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo ebookRepository) CreateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	q := `
INSERT INTO ebook (id, title, author, description, price, format, cover_url, file_url, stock, is_published, created_at, updated_at)
VALUES (:id, :title, :author, :description, :price, :format, :cover_url, :file_url, :stock, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.row(eb)); err != nil {
		return ebook.Ebook{}, errors.Wrap(err, "inserting ebook")
	}
	return eb, nil
}

func (repo ebookRepository) FilterEbooks(ctx context.Context, filter ebook.QueryFilter, ordering ...core.DBOrdering) ([]ebook.Ebook, error) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %[1]s OR author ILIKE %[1]s)", p))
	}
	if filter.Format != "" {
		clauses = append(clauses, fmt.Sprintf("format = %s", arg(filter.Format)))
	}
	if filter.IsPublished != nil {
		clauses = append(clauses, fmt.Sprintf("is_published = %s", arg(*filter.IsPublished)))
	}

	q := `SELECT * FROM ebook`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering)

	rows := make([]ebookRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering ebooks")
	}
	ebooks := make([]ebook.Ebook, 0, len(rows))
	for _, row := range rows {
		ebooks = append(ebooks, repo.unrow(row))
	}
	return ebooks, nil
}

func (repo ebookRepository) GetEbookByID(ctx context.Context, id string) (ebook.Ebook, error) {
	var row ebookRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM ebook WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return ebook.Ebook{}, ebook.ErrNotFound
		}
		return ebook.Ebook{}, errors.Wrap(err, "getting ebook")
	}
	return repo.unrow(row), nil
}

func (repo ebookRepository) UpdateEbook(ctx context.Context, eb ebook.Ebook) (ebook.Ebook, error) {
	q := `
UPDATE ebook
SET title = :title, author = :author, description = :description, price = :price, format = :format,
    cover_url = :cover_url, file_url = :file_url, stock = :stock, is_published = :is_published, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.row(eb))
	if err != nil {
		return ebook.Ebook{}, errors.Wrap(err, "updating ebook")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ebook.Ebook{}, ebook.ErrNotFound
	}
	return eb, nil
}

func (repo ebookRepository) DeleteEbooksByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM ebook WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting ebooks")
	}
	return nil
}
