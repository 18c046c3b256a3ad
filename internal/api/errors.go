package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/caretaker/internal/apperr"
)

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Current  string `json:"current_status,omitempty"`
	Blocking []uint `json:"blocking,omitempty"`
}

// statusFor maps an error kind to its HTTP status and wire name.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, apperr.ErrDependencyNotMet):
		return http.StatusPreconditionFailed, "dependency_not_met"
	case errors.Is(err, apperr.ErrEvidenceRequired):
		return http.StatusUnprocessableEntity, "evidence_required"
	case errors.Is(err, apperr.ErrPermission):
		return http.StatusForbidden, "permission_denied"
	}
	return http.StatusInternalServerError, "storage"
}

// writeError renders err. Storage and unclassified errors are logged and
// replaced with a generic message.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	code, kind := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: kind}
	if code == http.StatusInternalServerError {
		s.log.WithField("operation", op).WithError(err).Error("request failed")
		body.Error = "internal error"
	}

	var te *apperr.TransitionError
	if errors.As(err, &te) {
		body.Current = te.Current
	}
	var de *apperr.DependencyError
	if errors.As(err, &de) {
		body.Blocking = de.Blocking
	}
	c.AbortWithStatusJSON(code, body)
}
