package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/pagebox/internal/telemetry/tracing"
	"github.com/2beens/pagebox/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPathTaken    = errors.New("page path already taken")
)

type ListParams struct {
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, page Page) (_ *Page, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("page.path", page.Path))

	imagesJson, err := json.Marshal(page.Images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}

	page.ID = uuid.NewString()
	_, err = r.db.Exec(
		ctx,
		`INSERT INTO page (id, title, path, html, images) VALUES ($1, $2, $3, $4, $5);`,
		page.ID, page.Title, page.Path, page.HTML, imagesJson,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrPathTaken
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("page.id", page.ID))
	return &page, nil
}

func (r *Repo) Update(ctx context.Context, page Page) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("page.id", page.ID))

	// a malformed id cannot match any row, and would blow up the
	// uuid-typed id column on the way
	if _, uuidErr := uuid.Parse(page.ID); uuidErr != nil {
		return ErrPageNotFound
	}

	imagesJson, err := json.Marshal(page.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE page SET title = $1, path = $2, html = $3, images = $4 WHERE id = $5;`,
		page.Title, page.Path, page.HTML, imagesJson, page.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrPathTaken
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrPageNotFound
	}

	return nil
}

func (r *Repo) GetByPath(ctx context.Context, path string) (_ *Page, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.getByPath")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("page.path", path))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, path, html, images FROM page WHERE path = $1;`,
		path,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrPageNotFound
	}

	page, err := scanPage(rows)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("page.id", id))

	if _, uuidErr := uuid.Parse(id); uuidErr != nil {
		return ErrPageNotFound
	}

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM page WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPageNotFound
	}
	return nil
}

// List returns the requested page of pages, ordered by path, together
// with the total count of all stored pages.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Page, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	countAll, err := r.Count(ctx)
	if err != nil {
		return nil, -1, err
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	span.SetAttributes(attribute.Int("count_all", countAll))
	span.SetAttributes(attribute.Int("limit", limit))
	span.SetAttributes(attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, title, path, html, images
			FROM page
			ORDER BY path
			LIMIT $1
			OFFSET $2;`,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	pages, err := rows2pages(rows)
	if err != nil {
		return nil, -1, err
	}
	return pages, countAll, nil
}

func (r *Repo) Count(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pages.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM page;`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if !rows.Next() {
		return -1, errors.New("unexpected error [no rows next]")
	}

	var count int
	if err := rows.Scan(&count); err != nil {
		return -1, fmt.Errorf("rows scan: %w", err)
	}
	return count, nil
}

func scanPage(rows pgx.Rows) (*Page, error) {
	var page Page
	var imagesJson []byte
	if err := rows.Scan(&page.ID, &page.Title, &page.Path, &page.HTML, &imagesJson); err != nil {
		return nil, err
	}
	if len(imagesJson) > 0 {
		if err := json.Unmarshal(imagesJson, &page.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	return &page, nil
}

func rows2pages(rows pgx.Rows) ([]Page, error) {
	var pages []Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, nil
}
