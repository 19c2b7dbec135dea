package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/insights"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
)

// validationMessages returns the user-facing messages when err is a validation failure.
func validationMessages(err error) ([]string, bool) {
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// fail maps service errors to error pages. Validation errors are handled by
// the form handlers, which re-render with the submitted values.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, errBadID):
		s.renderError(w, r, http.StatusNotFound, "The requested item was not found.")
	case cancelled(ctx, err):
		logger.InfoContext(ctx, "Request cancelled", applog.FieldOperation, op)
	case errors.Is(err, insights.ErrDataUnavailable):
		logger.ErrorContext(ctx, "Dashboard data unavailable",
			applog.FieldOperation, op,
			applog.FieldError, err)
		s.renderError(w, r, http.StatusServiceUnavailable,
			"Your financial data is temporarily unavailable. Please try again shortly.")
	default:
		logger.ErrorContext(ctx, "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// failJSON is fail for the chart endpoint.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if cancelled(ctx, err) {
		applog.FromContext(ctx).InfoContext(ctx, "Request cancelled", applog.FieldOperation, op)
		return
	}
	status := http.StatusInternalServerError
	msg := "internal error"
	if errors.Is(err, insights.ErrDataUnavailable) {
		status = http.StatusServiceUnavailable
		msg = "data unavailable"
	}
	applog.FromContext(ctx).ErrorContext(ctx, "Request failed",
		applog.FieldOperation, op,
		applog.FieldError, err)
	NewResponse().Status(status).JSON(map[string]string{"error": msg}).Write(w)
}

// cancelled reports whether err is the request's own cancellation; the client is gone.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}
