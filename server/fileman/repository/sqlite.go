package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fileshare/server/fileman/domain"
)

// SQLite stores expires_at as RFC 3339 text in UTC.
const sqliteTimeLayout = time.RFC3339Nano

type SQLiteFileRepository struct {
	db *sql.DB
}

func NewSQLiteFileRepository(db *sql.DB) *SQLiteFileRepository {
	return &SQLiteFileRepository{db: db}
}

func (r *SQLiteFileRepository) Create(ctx context.Context, item domain.FileRecord) (domain.FileRecord, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files(id, name, path, size, type, expires_at, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Name, item.Path, item.Size, item.Type, item.ExpiresAt.UTC().Format(sqliteTimeLayout), item.CreatedAt, item.UpdatedAt)
	return item, err
}

func (r *SQLiteFileRepository) GetByID(ctx context.Context, id string) (domain.FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, path, size, type, expires_at, created_at, updated_at
		FROM files
		WHERE id=?
		LIMIT 1
	`, id)
	item, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FileRecord{}, ErrNotFound
		}
		return domain.FileRecord{}, err
	}
	return item, nil
}

func (r *SQLiteFileRepository) List(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, path, size, type, expires_at, created_at, updated_at
		FROM files
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FileRecord, 0)
	for rows.Next() {
		item, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (domain.FileRecord, error) {
	var (
		item      domain.FileRecord
		expiresAt string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Path, &item.Size, &item.Type, &expiresAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return domain.FileRecord{}, err
	}
	parsed, err := time.Parse(sqliteTimeLayout, expiresAt)
	if err != nil {
		return domain.FileRecord{}, fmt.Errorf("parse expires_at %q: %w", expiresAt, err)
	}
	item.ExpiresAt = parsed
	return item, nil
}
