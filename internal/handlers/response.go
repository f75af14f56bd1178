package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps domain sentinels onto HTTP statuses. Not-found
// covers both absence and invisibility, so existence never leaks across
// annotator scopes.
func RespondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	switch {
	case errors.Is(err, types.ErrProjectNotFound),
		errors.Is(err, types.ErrDocumentNotFound),
		errors.Is(err, types.ErrMarkupNotFound),
		errors.Is(err, types.ErrDatasetNotFound),
		errors.Is(err, types.ErrResourceNotFound),
		errors.Is(err, types.ErrEntityNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, types.ErrSelfRelation),
		errors.Is(err, types.ErrInvalidSpan),
		errors.Is(err, types.ErrInvalidFilter),
		errors.Is(err, types.ErrMissingLabel):
		RespondError(c, http.StatusBadRequest, "bad_request", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
