package repository

import (
	"context"
	"errors"

	"fileshare/server/fileman/domain"
)

var ErrNotFound = errors.New("file record not found")

// FileRepository is the metadata store. Records are insert-only.
type FileRepository interface {
	Create(ctx context.Context, item domain.FileRecord) (domain.FileRecord, error)
	GetByID(ctx context.Context, id string) (domain.FileRecord, error)
	List(ctx context.Context) ([]domain.FileRecord, error)
}
