package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/relaygate/errors"
)

// RespondWithError writes err at the HTTP boundary. A downstream reply
// carried by the error is relayed verbatim; any other AppError is rendered
// as the JSON envelope; unknown errors become a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.Code == apperrors.ErrCodeDownstream && appErr.Body != nil {
		RespondRaw(c, appErr.HTTPStatus, appErr.ContentType, appErr.Body)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondRaw writes body as is with the given status and content type.
func RespondRaw(c *gin.Context, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if status == http.StatusNoContent || status == http.StatusNotModified {
		c.Status(status)
		return
	}
	c.Data(status, contentType, body)
}

// RespondOK sends a 200 JSON response.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
