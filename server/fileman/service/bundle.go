package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"fileshare/server/common/infra/object"
	commonlog "fileshare/server/common/log"
	"fileshare/server/fileman/domain"
)

// WriteZip writes one archive entry per record, named after the record.
// Records whose blob is gone are skipped. Duplicate names are written as
// separate entries.
func (s *FileService) WriteZip(ctx context.Context, w io.Writer, records []domain.FileRecord) error {
	zw := zip.NewWriter(w)
	for _, item := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.objects.Get(ctx, item.Path)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				zipMissingBlobsTotal.Inc()
				commonlog.Warnf("zip: blob missing for file %s (%s), skipping", item.ID, item.Path)
				continue
			}
			return err
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     item.Name,
			Method:   zip.Deflate,
			Modified: time.UnixMilli(item.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("add zip entry %s: %w", item.Name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("write zip entry %s: %w", item.Name, err)
		}
	}
	return zw.Close()
}
