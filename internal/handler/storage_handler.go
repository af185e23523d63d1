package handler

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-tc-api/pkg/errors"
	"github.com/noah-isme/sma-tc-api/pkg/response"
	"github.com/noah-isme/sma-tc-api/pkg/storage"
)

// StorageHandler serves objects behind the public URLs handed out on issue.
type StorageHandler struct {
	store storage.ObjectStore
}

// NewStorageHandler constructs the handler.
func NewStorageHandler(store storage.ObjectStore) *StorageHandler {
	return &StorageHandler{store: store}
}

// Public godoc
// @Summary Fetch a public object
// @Tags Storage
// @Produce octet-stream
// @Param bucket path string true "Bucket"
// @Param name path string true "Object name"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /storage/public/{bucket}/{name} [get]
func (h *StorageHandler) Public(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	body, size, err := h.store.Open(c.Param("bucket"), name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "object not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open object"))
		return
	}
	defer body.Close() //nolint:errcheck

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{
		"Content-Disposition": "inline; filename=\"" + name + "\"",
	})
}
