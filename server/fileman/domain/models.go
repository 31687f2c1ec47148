package domain

import "time"

const (
	DefaultContentType    = "application/octet-stream"
	ZipFileName           = "files.zip"
	ZipContentType        = "application/zip"
	DefaultExpirationDays = 7
	UploadPathPrefix      = "upload/"
)

// AllowedExpirationDays lists the retention periods an uploader may choose.
var AllowedExpirationDays = []int{1, 3, 7, 30}

// FileRecord is one stored file. ExpiresAt is fixed at upload; the epoch
// fields are milliseconds.
type FileRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

func (f FileRecord) ExpiredAt(now time.Time) bool {
	return f.ExpiresAt.Before(now)
}

type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	Files   []FileRecord `json:"files"`
	Success bool         `json:"success"`
	Message string       `json:"message"`
	URL     string       `json:"url"`
}

// Download is a fully buffered payload ready to be sent as an attachment.
type Download struct {
	Data        []byte
	FileName    string
	ContentType string
}

// UploadedEvent is published once per successful upload batch.
type UploadedEvent struct {
	FileIDs   []string  `json:"file_ids"`
	Count     int       `json:"count"`
	TotalSize int64     `json:"total_size"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NormalizeExpirationDays(days int) int {
	for _, allowed := range AllowedExpirationDays {
		if days == allowed {
			return days
		}
	}
	return DefaultExpirationDays
}
