package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/llm-gateway/internal/ingest"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
	"github.com/yungbote/llm-gateway/internal/types"
)

type FilesHandler struct {
	log     *logger.Logger
	files   *ingest.FileService
	metrics *observability.Metrics
}

func NewFilesHandler(log *logger.Logger, files *ingest.FileService, metrics *observability.Metrics) *FilesHandler {
	return &FilesHandler{
		log:     log.With("handler", "FilesHandler"),
		files:   files,
		metrics: metrics,
	}
}

type uploadEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  []any  `json:"result"`
}

// POST /api/v1/files
// Upload one or more files. Duplicate content reuses the existing row;
// partial failures come back as 207 with the successful subset.
func (h *FilesHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, uploadEnvelope{Status: 400, Message: "invalid multipart form", Result: []any{}})
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, uploadEnvelope{Status: 400, Message: "No files provided", Result: []any{}})
		return
	}

	var author *types.Author
	authorID := firstValue(form.Value["author_id"])
	authorType := firstValue(form.Value["author_type"])
	if authorID != "" && authorType != "" {
		author = &types.Author{ID: authorID, Type: authorType}
	}

	result := make([]any, 0, len(parts))
	errMessage := ""
	for _, fh := range parts {
		content, err := readFilePart(fh)
		if err != nil {
			h.log.Error("Could not read uploaded file", "filename", fh.Filename, "error", err)
			errMessage = "Error processing file " + fh.Filename + ": " + err.Error()
			h.metrics.IncUpload("error")
			continue
		}
		res, err := h.files.SaveUpload(c.Request.Context(), fh.Filename, content, author)
		if err != nil {
			h.log.Error("Could not store uploaded file", "filename", fh.Filename, "error", err)
			errMessage = err.Error()
			h.metrics.IncUpload("error")
			continue
		}
		h.metrics.IncUpload("ok")
		result = append(result, gin.H{
			"file-id":         res.FileID,
			"size":            res.Size,
			"filename":        res.Filename,
			"stored_filename": res.StoredFilename,
		})
	}

	switch {
	case errMessage == "":
		c.JSON(http.StatusOK, uploadEnvelope{Status: 200, Message: "success", Result: result})
	case len(result) > 0:
		c.JSON(http.StatusMultiStatus, uploadEnvelope{Status: 207, Message: errMessage, Result: result})
	default:
		c.JSON(http.StatusBadRequest, uploadEnvelope{Status: 400, Message: errMessage, Result: []any{}})
	}
}

func firstValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
