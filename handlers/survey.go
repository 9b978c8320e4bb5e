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

type SurveyHandler struct {
	svc *survey.Service
	cfg cliparse.Config
}

func NewSurveyHandler(db *sql.DB, cfg cliparse.Config) *SurveyHandler {
	return &SurveyHandler{
		svc: survey.NewService(store.NewSQLStore(db), cfg.Phone, cfg.StepSize),
		cfg: cfg,
	}
}

// GetQuestions handles GET /api/survey/questions?phase=
func (h *SurveyHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("phase")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "phase is required")
		return
	}

	questions, err := h.svc.QuestionsForPhase(r.Context(), code)
	if err != nil {
		writeSurveyError(w, "list questions", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.QuestionsResponse{Questions: questions})
}

// OpenPhase handles GET /api/survey/phases/{code}. A locked phase answers
// 409 with the resume point to redirect to.
func (h *SurveyHandler) OpenPhase(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.OpenPhase(r.Context(), sessionToken(r), r.PathValue("code"))
	if err != nil {
		writeSurveyError(w, "open phase", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PhaseViewResponse{
		Success:           true,
		Phase:             view.Phase,
		Status:            view.Status,
		Steps:             view.Steps,
		CurrentStep:       view.CurrentStep,
		Answers:           view.Answers,
		VisibleCodes:      view.VisibleCodes,
		CompletionPercent: view.CompletionPercent,
	})
}

// SaveAnswers handles POST /api/responses/save (autosave)
func (h *SurveyHandler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	var req models.SaveAnswersRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.SaveAnswers(r.Context(), sessionToken(r), req.PhaseCode, req.Step, req.Answers)
	if err != nil {
		writeSurveyError(w, "save answers", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SaveAnswersResponse{
		Success:     true,
		SavedCount:  res.Saved,
		Skipped:     res.Skipped,
		LastSavedAt: res.SavedAt,
	})
}

// CompletePhase handles POST /api/phase/complete
func (h *SurveyHandler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	var req models.CompletePhaseRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.svc.CompletePhase(r.Context(), sessionToken(r), req.PhaseCode, req.Answers)
	if err != nil {
		writeSurveyError(w, "complete phase", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CompletePhaseResponse{
		Success:        true,
		PhaseCompleted: out.PhaseCompleted,
		NextPhase:      out.NextPhase,
	})
}
