package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/llm-gateway/internal/apierr"
	"github.com/yungbote/llm-gateway/internal/completion"
	"github.com/yungbote/llm-gateway/internal/ingest"
	"github.com/yungbote/llm-gateway/internal/logger"
)

type CompletionsHandler struct {
	log      *logger.Logger
	registry *completion.Registry
	files    *ingest.FileService
}

func NewCompletionsHandler(log *logger.Logger, registry *completion.Registry, files *ingest.FileService) *CompletionsHandler {
	return &CompletionsHandler{
		log:      log.With("handler", "CompletionsHandler"),
		registry: registry,
		files:    files,
	}
}

// POST /api/v1/chat/completions
// Accepts either raw JSON or multipart/form-data carrying the payload
// in a 'json' form field plus any number of file parts. Uploaded parts
// are stored and attached to the last user message.
func (h *CompletionsHandler) Create(c *gin.Context) {
	var req completion.Request

	if strings.Contains(strings.ToLower(c.ContentType()), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid multipart form: %w", err))
			return
		}
		jsonField := form.Value["json"]
		if len(jsonField) == 0 || strings.TrimSpace(jsonField[0]) == "" {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("no 'json' field found in multipart form data"))
			return
		}
		if err := json.Unmarshal([]byte(jsonField[0]), &req); err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("invalid JSON in 'json' form field: %w", err))
			return
		}
		fileIDs := h.saveFormFiles(c, form, &req)
		attachToLastUserMessage(&req, fileIDs)
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("request body must be valid JSON: %w", err))
			return
		}
	}

	if req.Purpose != "" && req.Purpose != "discord-bot" {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("unsupported 'purpose': '%s'", req.Purpose))
		return
	}

	handler := h.registry.Lookup(req.Provider, req.Model)
	if handler == nil {
		switch req.Provider {
		case "openai", "gemini", "anthropic":
			RespondError(c, http.StatusNotImplemented, apierr.CodeNotImplemented, fmt.Errorf("provider '%s' not implemented", req.Provider))
		default:
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, fmt.Errorf("unsupported model '%s' for provider '%s'", req.Model, req.Provider))
		}
		return
	}

	resp, err := handler.Complete(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Completion failed", "provider", req.Provider, "model", req.Model, "error", err)
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, resp)
}

// saveFormFiles stores every file part of the form. Failed parts are
// logged and skipped so the completion still runs.
func (h *CompletionsHandler) saveFormFiles(c *gin.Context, form *multipart.Form, req *completion.Request) []string {
	var ids []string
	for field, headers := range form.File {
		for _, fh := range headers {
			content, err := readFilePart(fh)
			if err != nil {
				h.log.Warn("Could not read multipart file, skipping", "field", field, "filename", fh.Filename, "error", err)
				continue
			}
			res, err := h.files.SaveUpload(c.Request.Context(), fh.Filename, content, req.Author)
			if err != nil {
				h.log.Warn("Could not store attached file, skipping", "filename", fh.Filename, "error", err)
				continue
			}
			ids = append(ids, res.FileID)
		}
	}
	return ids
}

func readFilePart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func attachToLastUserMessage(req *completion.Request, fileIDs []string) {
	if len(fileIDs) == 0 {
		return
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" || req.Messages[i].Role == "" {
			req.Messages[i].Attachments = append(req.Messages[i].Attachments, fileIDs...)
			return
		}
	}
	// No user turn to hang them on; add one so the files still land.
	req.Messages = append(req.Messages, completion.IncomingMessage{Role: "user", Attachments: fileIDs})
}
