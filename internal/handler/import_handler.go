package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/corpus"
	"github.com/xxxsen/legalvault/internal/filestore"
	"github.com/xxxsen/legalvault/internal/pkg/errcode"
	"github.com/xxxsen/legalvault/internal/pkg/response"
	"github.com/xxxsen/legalvault/internal/service"
)

type ImportHandler struct {
	sim           *service.SimilarityService
	archive       filestore.Store
	archivePrefix string
	maxUploadSize int64
}

// NewImportHandler builds the import endpoint. When archive is not nil every
// accepted payload is also stored under archivePrefix.
func NewImportHandler(sim *service.SimilarityService, archive filestore.Store, archivePrefix string, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{sim: sim, archive: archive, archivePrefix: archivePrefix, maxUploadSize: maxUploadSize}
}

// Import accepts a JSON array of cases either as the request body or as a
// multipart "file" field.
func (h *ImportHandler) Import(c *gin.Context) {
	raw, ok := h.readPayload(c)
	if !ok {
		return
	}
	cases, err := corpus.DecodeCases(raw)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "body must be a json array of cases")
		return
	}
	if len(cases) == 0 {
		response.Error(c, errcode.ErrInvalidFile, "no cases in payload")
		return
	}
	h.archivePayload(c.Request.Context(), raw)
	res, err := h.sim.Import(c.Request.Context(), cases)
	if err != nil && res == nil {
		logutil.GetLogger(c.Request.Context()).Error("import cases failed", zap.Int("cases", len(cases)), zap.Error(err))
		response.Error(c, errcode.ErrImportFailed, "import failed")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *ImportHandler) readPayload(c *gin.Context) ([]byte, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "file is required")
			return nil, false
		}
		if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
			response.Error(c, errcode.ErrInvalidFile, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
			return nil, false
		}
		raw, err := readFormFile(file)
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "failed to open file")
			return nil, false
		}
		return raw, true
	}
	body := c.Request.Body
	if h.maxUploadSize > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxUploadSize)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "body too large (max "+formatUploadLimit(h.maxUploadSize)+")")
		return nil, false
	}
	return raw, true
}

func (h *ImportHandler) archivePayload(ctx context.Context, raw []byte) {
	if h.archive == nil {
		return
	}
	key := path.Join(h.archivePrefix, time.Now().UTC().Format("20060102"), uuid.NewString()+".json")
	if err := h.archive.Save(ctx, key, bytes.NewReader(raw), int64(len(raw))); err != nil {
		logutil.GetLogger(ctx).Warn("archive import payload failed", zap.String("key", key), zap.Error(err))
		return
	}
	logutil.GetLogger(ctx).Info("import payload archived", zap.String("key", key), zap.String("store", h.archive.Type()))
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	opened, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer opened.Close()
	return io.ReadAll(opened)
}
