package service

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"fileshare/server/common/apperr"
	"fileshare/server/common/infra/object"
	commonlog "fileshare/server/common/log"
	"fileshare/server/fileman/domain"
)

const thumbnailSize = 320

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// storeThumbnail is best-effort: a file that cannot be decoded simply has no
// preview.
func (s *FileService) storeThumbnail(ctx context.Context, item domain.FileRecord, data []byte) {
	if !isImage(item.Type) {
		return
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		commonlog.Debugf("thumbnail decode %s: %v", item.ID, err)
		return
	}

	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		commonlog.Warnf("thumbnail encode %s: %v", item.ID, err)
		return
	}
	if err := s.objects.Put(ctx, thumbnailPath(item.Path), bytes.NewReader(buf.Bytes()), int64(buf.Len()), defaultPreviewFormat); err != nil {
		commonlog.Warnf("thumbnail upload %s: %v", item.ID, err)
	}
}

// Preview returns the JPEG thumbnail of an unexpired image upload.
func (s *FileService) Preview(ctx context.Context, id string) (domain.Download, error) {
	item, err := s.GetFileByID(ctx, id)
	if err != nil {
		return domain.Download{}, err
	}
	if !isImage(item.Type) {
		return domain.Download{}, apperr.NotFound(ErrPreviewNotFound)
	}

	data, err := s.objects.Get(ctx, thumbnailPath(item.Path))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return domain.Download{}, apperr.NotFound(ErrPreviewNotFound)
		}
		return domain.Download{}, apperr.Storage(ErrDownloadFailed, err)
	}
	name := strings.TrimSuffix(item.Name, path.Ext(item.Name)) + thumbSuffix
	return domain.Download{Data: data, FileName: name, ContentType: defaultPreviewFormat}, nil
}
