// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/survey"
)

// SessionHeader carries the respondent session token
const SessionHeader = "X-Session-Token"

type RespondentHandler struct {
	svc *survey.Service
	cfg cliparse.Config
}

func NewRespondentHandler(db *sql.DB, cfg cliparse.Config) *RespondentHandler {
	return &RespondentHandler{
		svc: survey.NewService(store.NewSQLStore(db), cfg.Phone, cfg.StepSize),
		cfg: cfg,
	}
}

// sessionToken reads the token from the header, or from ?token= on GET
func sessionToken(r *http.Request) string {
	if t := r.Header.Get(SessionHeader); t != "" {
		return t
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

// Start handles POST /api/respondent/start
func (h *RespondentHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), req.FullName, req.Phone)
	if err != nil {
		writeSurveyError(w, "register", err)
		return
	}

	status := http.StatusOK
	if reg.IsNew {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, models.StartResponse{
		Success:      true,
		IsNew:        reg.IsNew,
		RespondentID: reg.Respondent.ID,
		SessionToken: reg.Session.Token,
		ResumePoint:  reg.Resume,
	})
}

// Resume handles GET /api/respondent/resume
func (h *RespondentHandler) Resume(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Resume(r.Context(), sessionToken(r))
	if err != nil {
		writeSurveyError(w, "resume", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResumeResponse{
		Success:        true,
		Respondent:     state.Respondent,
		Session:        state.Session,
		Phases:         state.Phases,
		SavedResponses: state.Answers,
		Resume:         state.Resume,
	})
}

// Logout handles POST /api/logout. The client drops its token; the session
// row is kept so signing in again can resume it.
func (h *RespondentHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Success: true})
}
