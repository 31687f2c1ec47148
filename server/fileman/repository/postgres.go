package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fileshare/server/fileman/domain"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresFileRepository struct {
	db DBTX
}

func NewPostgresFileRepository(db DBTX) *PostgresFileRepository {
	return &PostgresFileRepository{db: db}
}

func (r *PostgresFileRepository) Create(ctx context.Context, item domain.FileRecord) (domain.FileRecord, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO files(id, name, path, size, type, expires_at, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.Name, item.Path, item.Size, item.Type, item.ExpiresAt, item.CreatedAt, item.UpdatedAt)
	return item, err
}

func (r *PostgresFileRepository) GetByID(ctx context.Context, id string) (domain.FileRecord, error) {
	var item domain.FileRecord
	err := r.db.QueryRow(ctx, `
		SELECT id, name, path, size, type, expires_at, created_at, updated_at
		FROM files
		WHERE id=$1
		LIMIT 1
	`, id).Scan(&item.ID, &item.Name, &item.Path, &item.Size, &item.Type, &item.ExpiresAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FileRecord{}, ErrNotFound
		}
		return domain.FileRecord{}, err
	}
	return item, nil
}

func (r *PostgresFileRepository) List(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, path, size, type, expires_at, created_at, updated_at
		FROM files
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FileRecord, 0)
	for rows.Next() {
		var item domain.FileRecord
		if err := rows.Scan(&item.ID, &item.Name, &item.Path, &item.Size, &item.Type, &item.ExpiresAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
