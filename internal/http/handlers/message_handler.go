// Audio message HTTP handlers.
//
// This file exposes the REST endpoints for audio messages:
//   - GET    /messages       (list, optional sender/recipient equality filters)
//   - GET    /messages/:id   (fetch one)
//   - POST   /messages       (create from multipart form)
//   - PUT    /messages/:id   (partial update from multipart form)
//   - DELETE /messages/:id   (delete row and blob)
//
// Handlers are transport-thin: they decode the multipart form, delegate to
// the MessageService, and map service sentinel errors onto HTTP statuses.
// Unparseable ids are 404, not 400: an id that cannot be an integer cannot
// name an existing record.
package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elanexo/audio-backend/internal/domain"
	"github.com/elanexo/audio-backend/internal/services"
)

// formFieldFile is the multipart field carrying the uploaded audio content.
const formFieldFile = "audio_file"

// MessageService is the application-service surface the handlers depend on.
type MessageService interface {
	List(ctx context.Context, f services.ListFilter) ([]domain.AudioMessage, error)
	Get(ctx context.Context, id int64) (*domain.AudioMessage, error)
	Create(ctx context.Context, in services.CreateInput) (*domain.AudioMessage, error)
	Update(ctx context.Context, id int64, p services.UpdatePatch) (*domain.AudioMessage, error)
	Delete(ctx context.Context, id int64) error
	Media(ctx context.Context, filename string) (io.ReadCloser, int64, error)
}

// Handlers bundles the HTTP handlers with their injected service.
type Handlers struct {
	svc MessageService
}

// New constructs the handler set.
func New(svc MessageService) *Handlers {
	return &Handlers{svc: svc}
}

// DeleteResponse confirms a successful deletion.
type DeleteResponse struct {
	Message string `json:"message"`
}

// parseID extracts the numeric :id path parameter.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// readUpload opens the multipart file header and slurps its content. The
// global body cap bounds the read.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ListMessages returns all messages matching the optional sender/recipient
// query filters as a bare JSON array. Row order is unspecified.
func (h *Handlers) ListMessages(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), services.ListFilter{
		Sender:    c.Query("sender"),
		Recipient: c.Query("recipient"),
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetMessage fetches a single message by id.
func (h *Handlers) GetMessage(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	}

	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, m)
}

// CreateMessage creates a message from a multipart form with fields sender,
// recipient, audio_file, and optional duration. An unparseable duration is
// treated as absent here; only updates reject one.
func (h *Handlers) CreateMessage(c *gin.Context) {
	fh, err := c.FormFile(formFieldFile)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "audio file is required")
		return
	}
	if fh.Filename == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no file selected")
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read audio file")
		return
	}

	var duration *float64
	if raw := c.PostForm("duration"); raw != "" {
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
			duration = &v
		}
	}

	m, err := h.svc.Create(c.Request.Context(), services.CreateInput{
		Sender:    c.PostForm("sender"),
		Recipient: c.PostForm("recipient"),
		Filename:  fh.Filename,
		Data:      data,
		Duration:  duration,
	})
	if err != nil {
		switch err {
		case services.ErrMissingSender, services.ErrMissingRecipient,
			services.ErrMissingFile, services.ErrUnsupportedFormat:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrNameExhausted:
			fail(c, http.StatusInternalServerError, ErrCodeNameExhausted, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, m)
}

// UpdateMessage applies a partial update from a multipart form. All fields
// are optional; a replacement file with a disallowed extension is ignored
// while the metadata fields still apply.
func (h *Handlers) UpdateMessage(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	}

	var patch services.UpdatePatch
	if fh, err := c.FormFile(formFieldFile); err == nil && fh.Filename != "" {
		data, rerr := readUpload(fh)
		if rerr != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read audio file")
			return
		}
		patch.File = &services.FileUpload{Name: fh.Filename, Data: data}
	}
	if v, has := c.GetPostForm("sender"); has {
		patch.Sender = &v
	}
	if v, has := c.GetPostForm("recipient"); has {
		patch.Recipient = &v
	}
	if v, has := c.GetPostForm("duration"); has {
		patch.Duration = &v
	}

	m, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case services.ErrInvalidDuration, services.ErrMissingFile:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrNameExhausted:
			fail(c, http.StatusInternalServerError, ErrCodeNameExhausted, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMessage removes the message row and its blob.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	id, okID := parseID(c)
	if !okID {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, DeleteResponse{Message: "message deleted"})
}
