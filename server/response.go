package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/demandflow/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an error body with the status it carries;
// errors that are not AppErrors become INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatusOf(err), apperrors.Normalize(err).ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}
