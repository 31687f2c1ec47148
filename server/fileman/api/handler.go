package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	commonlog "fileshare/server/common/log"
	"fileshare/server/common/transport/httpresp"
	"fileshare/server/fileman/domain"
)

const (
	healthMessage       = "API is running."
	defaultUploadMemory = 32 << 20
)

type FileService interface {
	GetAllFiles(ctx context.Context) ([]domain.FileRecord, error)
	GetFileByID(ctx context.Context, id string) (domain.FileRecord, error)
	UploadFiles(ctx context.Context, files []domain.UploadFile, expirationDays int) (domain.UploadResult, error)
	DownloadFile(ctx context.Context, id string) (domain.Download, error)
	DownloadFilesAsZip(ctx context.Context, ids []string) (domain.Download, error)
	Preview(ctx context.Context, id string) (domain.Download, error)
}

type Handler struct {
	files           FileService
	maxUploadMemory int64
}

// NewHandler builds the file routes. maxUploadMemory bounds the multipart
// parts kept in memory; larger parts spill to temp files.
func NewHandler(files FileService, maxUploadMemory int64) *Handler {
	if maxUploadMemory <= 0 {
		maxUploadMemory = defaultUploadMemory
	}
	return &Handler{files: files, maxUploadMemory: maxUploadMemory}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/files", h.listFiles)
		api.GET("/files/:id", h.getFile)
		api.GET("/files/:id/preview", h.preview)
		api.POST("/upload", h.upload)
		api.GET("/download/:id", h.download)
		// gin requires one wildcard name per segment; :id holds a comma list here.
		api.GET("/download/:id/zip", h.downloadZip)
	}
}

func (h *Handler) health(c *gin.Context) {
	httpresp.Success(c, http.StatusOK, gin.H{"message": healthMessage})
}

func (h *Handler) listFiles(c *gin.Context) {
	items, err := h.files.GetAllFiles(c.Request.Context())
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Success(c, http.StatusOK, items)
}

func (h *Handler) getFile(c *gin.Context) {
	item, err := h.files.GetFileByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Success(c, http.StatusOK, item)
}

func (h *Handler) upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.maxUploadMemory); err != nil {
		httpresp.Error(c, http.StatusBadRequest, httpresp.ErrNoFilesUploaded)
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["file"]
	if len(headers) == 0 {
		httpresp.Error(c, http.StatusBadRequest, httpresp.ErrNoFilesUploaded)
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		item, err := readPart(fh)
		if err != nil {
			commonlog.Warnf("read upload part %s: %v", fh.Filename, err)
			httpresp.Error(c, http.StatusBadRequest, httpresp.ErrInvalidRequest)
			return
		}
		files = append(files, item)
	}

	days, _ := strconv.Atoi(strings.TrimSpace(c.Request.FormValue("expiration")))
	result, err := h.files.UploadFiles(c.Request.Context(), files, days)
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Success(c, http.StatusOK, result)
}

func (h *Handler) download(c *gin.Context) {
	out, err := h.files.DownloadFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Binary(c, out.Data, out.FileName, out.ContentType)
}

func (h *Handler) downloadZip(c *gin.Context) {
	ids := strings.Split(c.Param("id"), ",")
	out, err := h.files.DownloadFilesAsZip(c.Request.Context(), ids)
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	httpresp.Binary(c, out.Data, out.FileName, out.ContentType)
}

func (h *Handler) preview(c *gin.Context) {
	out, err := h.files.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpresp.FromError(c, err, http.StatusInternalServerError)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", out.FileName))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// readPart buffers one multipart file. Parts sent without a Content-Type are
// sniffed from their bytes.
func readPart(fh *multipart.FileHeader) (domain.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadFile{}, err
	}
	if data == nil {
		data = []byte{}
	}

	contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if contentType == "" && len(data) > 0 {
		contentType = mimetype.Detect(data).String()
	}
	return domain.UploadFile{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}
