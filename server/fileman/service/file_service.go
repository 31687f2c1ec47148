package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"fileshare/server/common/apperr"
	"fileshare/server/common/infra/object"
	commonlog "fileshare/server/common/log"
	"fileshare/server/fileman/domain"
	"fileshare/server/fileman/repository"
)

const (
	ErrNoFilesUploaded   = "No files uploaded"
	ErrFileNotFound      = "File not found"
	ErrFileExpired       = "File has expired"
	ErrBlobNotFound      = "File not found in storage"
	ErrNoFilesFound      = "No files found"
	ErrUploadFailed      = "Failed to upload files"
	ErrGetFileInfo       = "Failed to get file info"
	ErrRetrieveFiles     = "Failed to retrieve files"
	ErrDownloadFailed    = "Failed to download file"
	ErrZipFailed         = "Failed to create ZIP file"
	ErrPreviewNotFound   = "Preview not found"
	uploadedEventKey     = "files.uploaded"
	defaultShareLocale   = "ja"
	defaultPreviewFormat = "image/jpeg"
)

// EventPublisher receives upload notifications. *mq.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Config struct {
	// Locale is the first segment of the share URL returned by uploads.
	Locale string
	// CleanupOrphanOnFailure deletes a file's blob when its record insert
	// fails. Earlier files of the batch are never touched.
	CleanupOrphanOnFailure bool
	Thumbnails             bool
}

type FileService struct {
	files   repository.FileRepository
	objects object.Store
	events  EventPublisher
	cfg     Config
	now     func() time.Time
	token   func() string
}

func NewFileService(files repository.FileRepository, objects object.Store, events EventPublisher, cfg Config) *FileService {
	if strings.TrimSpace(cfg.Locale) == "" {
		cfg.Locale = defaultShareLocale
	}
	return &FileService{
		files:   files,
		objects: objects,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
		token:   randomToken,
	}
}

func (s *FileService) GetAllFiles(ctx context.Context) ([]domain.FileRecord, error) {
	items, err := s.files.List(ctx)
	if err != nil {
		commonlog.Errorf("list files: %v", err)
		return nil, apperr.Storage(ErrRetrieveFiles, err)
	}
	return items, nil
}

// GetFileByID returns the record only while it is unexpired. Missing and
// expired records fail with different kinds.
func (s *FileService) GetFileByID(ctx context.Context, id string) (domain.FileRecord, error) {
	item, err := s.files.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FileRecord{}, apperr.NotFound(ErrFileNotFound)
		}
		commonlog.Errorf("get file %s: %v", id, err)
		return domain.FileRecord{}, apperr.Storage(ErrGetFileInfo, err)
	}
	if item.ExpiredAt(s.now()) {
		return domain.FileRecord{}, apperr.Expired(ErrFileExpired)
	}
	return item, nil
}

// UploadFiles stores the batch in order. A failure aborts the remaining files
// and leaves earlier files of the batch in place.
func (s *FileService) UploadFiles(ctx context.Context, files []domain.UploadFile, expirationDays int) (domain.UploadResult, error) {
	if len(files) == 0 {
		return domain.UploadResult{}, apperr.Validation(ErrNoFilesUploaded)
	}

	days := domain.NormalizeExpirationDays(expirationDays)
	expiresAt := s.now().UTC().AddDate(0, 0, days)

	records := make([]domain.FileRecord, 0, len(files))
	var totalSize int64
	for _, f := range files {
		item, err := s.storeOne(ctx, f, expiresAt)
		if err != nil {
			uploadFailuresTotal.Inc()
			commonlog.Errorf("upload aborted after %d of %d files: %v", len(records), len(files), err)
			return domain.UploadResult{}, apperr.Storage(ErrUploadFailed, err)
		}
		records = append(records, item)
		totalSize += item.Size
		if s.cfg.Thumbnails {
			s.storeThumbnail(ctx, item, f.Data)
		}
	}

	uploadedFilesTotal.Add(float64(len(records)))
	uploadedBytesTotal.Add(float64(totalSize))
	commonlog.Infof("uploaded %d files (%s), expiring in %d days", len(records), humanize.Bytes(uint64(totalSize)), days)
	s.publishUploaded(ctx, records, totalSize, expiresAt)

	return domain.UploadResult{
		Files:   records,
		Success: true,
		Message: fmt.Sprintf("%d files uploaded successfully", len(records)),
		URL:     fmt.Sprintf("/%s/files/%s", s.cfg.Locale, records[0].ID),
	}, nil
}

func (s *FileService) storeOne(ctx context.Context, f domain.UploadFile, expiresAt time.Time) (domain.FileRecord, error) {
	now := s.now()
	objectPath := storagePath(now, s.token(), f.Name)
	size := int64(len(f.Data))

	if err := s.objects.Put(ctx, objectPath, bytes.NewReader(f.Data), size, f.ContentType); err != nil {
		return domain.FileRecord{}, fmt.Errorf("upload file %s: %w", f.Name, err)
	}

	ms := now.UnixMilli()
	item, err := s.files.Create(ctx, domain.FileRecord{
		ID:        uuid.NewString(),
		Name:      f.Name,
		Path:      objectPath,
		Size:      size,
		Type:      f.ContentType,
		ExpiresAt: expiresAt,
		CreatedAt: ms,
		UpdatedAt: ms,
	})
	if err != nil {
		if s.cfg.CleanupOrphanOnFailure {
			if delErr := s.objects.Delete(ctx, objectPath); delErr != nil {
				commonlog.Warnf("remove orphan blob %s: %v", objectPath, delErr)
			}
		}
		return domain.FileRecord{}, fmt.Errorf("upload file %s: %w", f.Name, err)
	}
	return item, nil
}

func (s *FileService) DownloadFile(ctx context.Context, id string) (domain.Download, error) {
	item, err := s.GetFileByID(ctx, id)
	if err != nil {
		return domain.Download{}, err
	}

	data, err := s.objects.Get(ctx, item.Path)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return domain.Download{}, apperr.NotFound(ErrBlobNotFound)
		}
		commonlog.Errorf("download file %s: %v", item.ID, err)
		return domain.Download{}, apperr.Storage(ErrDownloadFailed, err)
	}

	contentType := item.Type
	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	downloadsTotal.WithLabelValues("single").Inc()
	return domain.Download{Data: data, FileName: item.Name, ContentType: contentType}, nil
}

// DownloadFilesAsZip bundles the named files. Unknown ids are skipped; one
// expired file fails the whole bundle before any blob is read.
func (s *FileService) DownloadFilesAsZip(ctx context.Context, ids []string) (domain.Download, error) {
	records := make([]domain.FileRecord, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		item, err := s.files.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			commonlog.Errorf("zip lookup %s: %v", id, err)
			return domain.Download{}, apperr.Storage(ErrZipFailed, err)
		}
		records = append(records, item)
	}
	if len(records) == 0 {
		return domain.Download{}, apperr.NotFound(ErrNoFilesFound)
	}

	now := s.now()
	for _, item := range records {
		if item.ExpiredAt(now) {
			return domain.Download{}, apperr.Expired(fmt.Sprintf("File %s has expired", item.Name))
		}
	}

	var buf bytes.Buffer
	if err := s.WriteZip(ctx, &buf, records); err != nil {
		commonlog.Errorf("build zip of %d files: %v", len(records), err)
		return domain.Download{}, apperr.Storage(ErrZipFailed, err)
	}
	downloadsTotal.WithLabelValues("zip").Inc()
	return domain.Download{Data: buf.Bytes(), FileName: domain.ZipFileName, ContentType: domain.ZipContentType}, nil
}

func (s *FileService) publishUploaded(ctx context.Context, records []domain.FileRecord, totalSize int64, expiresAt time.Time) {
	if s.events == nil {
		return
	}
	ids := make([]string, 0, len(records))
	for _, item := range records {
		ids = append(ids, item.ID)
	}
	event := domain.UploadedEvent{FileIDs: ids, Count: len(records), TotalSize: totalSize, ExpiresAt: expiresAt}
	if err := s.events.Publish(ctx, uploadedEventKey, event); err != nil {
		commonlog.Warnf("publish %s: %v", uploadedEventKey, err)
	}
}
