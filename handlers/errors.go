// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/survey"
)

const (
	msgSignInAgain = "Your session has expired. Please sign in again."
	msgTryAgain    = "A temporary problem occurred. Please try again."
)

// writeSurveyError maps survey errors onto status codes. Respondents see a
// message they can act on; details stay in the log.
func writeSurveyError(w http.ResponseWriter, op string, err error) {
	var (
		verr   *survey.ValidationError
		aerr   *survey.InvalidAnswerError
		locked *survey.PhaseLockedError
	)

	switch {
	case errors.As(err, &verr):
		middleware.JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
			Error:        http.StatusText(http.StatusBadRequest),
			Message:      verr.Message,
			QuestionCode: verr.QuestionCode,
		})
	case errors.As(err, &aerr):
		middleware.JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
			Error:        http.StatusText(http.StatusBadRequest),
			Message:      aerr.Error(),
			QuestionCode: aerr.QuestionCode,
		})
	case errors.Is(err, survey.ErrInvalidName), errors.Is(err, survey.ErrQuestionNotFound):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, survey.ErrInvalidSession), errors.Is(err, survey.ErrSessionClosed):
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgSignInAgain)
	case errors.Is(err, survey.ErrPhaseNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Phase not found")
	case errors.Is(err, survey.ErrRespondentMissing):
		middleware.ErrorResponse(w, http.StatusNotFound, "We could not find your registration. Please register again.")
	case errors.As(err, &locked):
		middleware.RedirectResponse(w, http.StatusConflict, "This phase is not available. Continue where you left off.", locked.Redirect)
	case errors.Is(err, survey.ErrUnavailable):
		slog.Warn("storage unavailable", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, msgTryAgain)
	default:
		slog.Error("request failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgTryAgain)
	}
}

// writeStoreError handles admin-side storage errors
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrUnavailable):
		slog.Warn("storage unavailable", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, msgTryAgain)
	default:
		slog.Error("admin request failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
