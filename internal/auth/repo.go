package auth

import (
	"context"
	"errors"

	"github.com/2beens/pagebox/internal/telemetry/tracing"
	"github.com/2beens/pagebox/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, admin Admin) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("admin.username", admin.Username))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO admin (username, password_hash) VALUES ($1, $2);`,
		admin.Username, admin.PasswordHash,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (_ *Admin, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.getByUsername")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("admin.username", username))

	rows, err := r.db.Query(
		ctx,
		`SELECT username, password_hash FROM admin WHERE username = $1;`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrAdminNotFound
	}

	var admin Admin
	if err := rows.Scan(&admin.Username, &admin.PasswordHash); err != nil {
		return nil, err
	}
	return &admin, nil
}
