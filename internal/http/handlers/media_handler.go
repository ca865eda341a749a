// Media and capability endpoints.
//
// ServeMedia streams raw blob bytes for a stored filename; the service
// layer rejects traversal-unsafe names before the store is touched, so a
// crafted path can only ever produce a 404. The root endpoint returns the
// capability listing clients use for discovery.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/elanexo/audio-backend/internal/services"
)

// audioContentTypes maps allowed audio extensions to their MIME types.
var audioContentTypes = map[string]string{
	"mp3": "audio/mpeg",
	"wav": "audio/wav",
	"ogg": "audio/ogg",
	"m4a": "audio/mp4",
	"aac": "audio/aac",
	"3gp": "audio/3gpp",
}

// contentTypeFor picks a MIME type from the filename extension, defaulting
// to an opaque byte stream.
func contentTypeFor(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		if ct, ok := audioContentTypes[strings.ToLower(filename[i+1:])]; ok {
			return ct
		}
	}
	return "application/octet-stream"
}

// ServeMedia streams the blob stored under the :filename path parameter.
func (h *Handlers) ServeMedia(c *gin.Context) {
	filename := c.Param("filename")

	rc, size, err := h.svc.Media(c.Request.Context(), filename)
	if err != nil {
		switch err {
		case services.ErrMediaNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "media not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, contentTypeFor(filename), rc, nil)
}

// Index returns the capability listing for the API root.
func (h *Handlers) Index(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"message": "audio messages API",
		"version": "1.0",
		"endpoints": gin.H{
			"GET /messages":        "list messages (filters: ?sender=X&recipient=Y)",
			"GET /messages/:id":    "fetch one message",
			"POST /messages":       "create a message (multipart/form-data)",
			"PUT /messages/:id":    "update a message (multipart/form-data)",
			"DELETE /messages/:id": "delete a message",
			"GET /media/:filename": "serve stored audio content",
		},
	})
}
