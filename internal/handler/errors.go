package handler

import (
	"errors"
	"net/http"

	"crm-backend/internal/approval"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps workflow errors onto HTTP statuses. Unrecognized
// errors are treated as internal.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var (
		notFound     *approval.NotFoundError
		validation   *approval.ValidationError
		unauthorized *approval.UnauthorizedError
		invalidState *approval.InvalidStatusError
		locked       *approval.QuotationLockedError
		conflict     *approval.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &unauthorized):
		status = http.StatusForbidden
	case errors.As(err, &invalidState):
		status = http.StatusConflict
	case errors.As(err, &locked):
		status = http.StatusConflict
	case errors.As(err, &conflict):
		status = http.StatusConflict
	}

	c.JSON(status, response.Error(status, err.Error()))
}
