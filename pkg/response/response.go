package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/internal/models"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
	"github.com/noah-isme/tailms-api/pkg/middleware/requestid"
)

const (
	metaKey      = "response_meta"
	startedAtKey = "response_started_at"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Begin records when handling started; envelopes written afterwards report
// processing_time_ms.
func Begin(c *gin.Context) {
	c.Set(startedAtKey, time.Now())
}

// SetMeta adds key to the meta block of the response written for c.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if existing, ok := c.Get(metaKey); ok {
		if meta, ok := existing.(map[string]interface{}); ok {
			meta[key] = value
			return
		}
	}
	c.Set(metaKey, map[string]interface{}{key: value})
}

// JSON sends a success envelope with optional pagination.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	write(c, status, Envelope{Data: data, Pagination: pagination})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error converts err to the common structure and sends it.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	write(c, appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Attachment sends a file download.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	noStore(c)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func write(c *gin.Context, status int, envelope Envelope) {
	noStore(c)
	envelope.Meta = collectMeta(c)
	c.JSON(status, envelope)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func collectMeta(c *gin.Context) map[string]interface{} {
	meta := make(map[string]interface{})
	if existing, ok := c.Get(metaKey); ok {
		if values, ok := existing.(map[string]interface{}); ok {
			for k, v := range values {
				meta[k] = v
			}
		}
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if started, ok := c.Get(startedAtKey); ok {
		if t, ok := started.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
