// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/testutil"
)

func TestGetQuestions(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCount  int
	}{
		{"phase one", "/api/survey/questions?phase=P1", http.StatusOK, 5},
		{"phase two", "/api/survey/questions?phase=P2", http.StatusOK, 3},
		{"missing phase", "/api/survey/questions", http.StatusBadRequest, 0},
		{"unknown phase", "/api/survey/questions?phase=P9", http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(e.survey.GetQuestions, testutil.MakeRequest("GET", tt.path, nil, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp models.QuestionsResponse
			testutil.AssertJSON(t, w, &resp)
			assert.Len(t, resp.Questions, tt.expectedCount)
		})
	}
}

func TestOpenPhase(t *testing.T) {
	e := newEnv(t)
	token := e.start(t, "Ani Wijaya", "081234567890").SessionToken

	w := e.openPhase(token, "P1")
	testutil.AssertStatus(t, w, http.StatusOK)
	var view models.PhaseViewResponse
	testutil.AssertJSON(t, w, &view)
	assert.Equal(t, "P1", view.Phase.Code)
	assert.Equal(t, models.ProgressNotStarted, view.Status)
	assert.Equal(t, []string{"affiliation", "country_base"}, view.VisibleCodes)

	// P2 is locked until P1 completes
	w = e.openPhase(token, "P2")
	testutil.AssertStatus(t, w, http.StatusConflict)
	resp := decodeError(t, w)
	require.NotNil(t, resp.Redirect)
	assert.Equal(t, "P1", resp.Redirect.PhaseCode)

	testutil.AssertStatus(t, e.openPhase(token, "NOPE"), http.StatusNotFound)
	testutil.AssertStatus(t, e.openPhase("", "P1"), http.StatusUnauthorized)
}

func TestSaveAnswers(t *testing.T) {
	e := newEnv(t)
	token := e.start(t, "Ani Wijaya", "081234567890").SessionToken

	tests := []struct {
		name           string
		token          string
		phase          string
		answers        map[string]any
		expectedStatus int
		questionCode   string
	}{
		{"valid partial save", token, "P1", map[string]any{"affiliation": "Industry", "company": "Acme"}, http.StatusOK, ""},
		{"null answers are skipped", token, "P1", map[string]any{"country_base": nil}, http.StatusOK, ""},
		{"option not offered", token, "P1", map[string]any{"affiliation": "Pirate"}, http.StatusBadRequest, "affiliation"},
		{"question from another phase", token, "P1", map[string]any{"recommend": "Yes"}, http.StatusBadRequest, ""},
		{"locked phase", token, "P2", map[string]any{"satisfaction": 4}, http.StatusConflict, ""},
		{"no session", "", "P1", map[string]any{"affiliation": "Academia"}, http.StatusUnauthorized, ""},
		{"empty answers", token, "P1", map[string]any{}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.save(tt.token, tt.phase, 1, tt.answers)
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.questionCode != "" {
				assert.Equal(t, tt.questionCode, decodeError(t, w).QuestionCode)
			}
		})
	}
}

func TestSaveAnswers_Counts(t *testing.T) {
	e := newEnv(t)
	token := e.start(t, "Ani Wijaya", "081234567890").SessionToken

	w := e.save(token, "P1", 0, map[string]any{"affiliation": "Academia", "country_base": nil})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SaveAnswersResponse
	testutil.AssertJSON(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SavedCount)
	assert.Equal(t, 1, resp.Skipped)
	assert.False(t, resp.LastSavedAt.IsZero())
}

func TestCompletePhase(t *testing.T) {
	e := newEnv(t)
	token := e.start(t, "Ani Wijaya", "081234567890").SessionToken

	// University is required once Academia is chosen
	w := e.complete(token, "P1", map[string]any{"affiliation": "Academia", "country_base": "Indonesia"})
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "university", decodeError(t, w).QuestionCode)

	w = e.complete(token, "P1", p1Answers)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.CompletePhaseResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "P1", resp.PhaseCompleted)
	assert.Equal(t, "P2", resp.NextPhase)

	// Completed phases accept no further autosaves
	testutil.AssertStatus(t, e.save(token, "P1", 0, map[string]any{"affiliation": "Industry"}), http.StatusConflict)

	testutil.AssertStatus(t, e.complete(token, "P2", p2Answers), http.StatusOK)
	w = e.complete(token, "P3", p3Answers)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, models.PhaseDone, resp.NextPhase)

	// The session is closed once everything is done
	testutil.AssertStatus(t, e.save(token, "P3", 0, map[string]any{"recommend": "No"}), http.StatusUnauthorized)
}

func TestCompletePhase_BadBody(t *testing.T) {
	e := newEnv(t)
	token := e.start(t, "Ani Wijaya", "081234567890").SessionToken

	req := testutil.MakeRequest("POST", "/api/phase/complete", map[string]any{"answers": p1Answers}, map[string]string{SessionHeader: token})
	w := call(e.survey.CompletePhase, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, decodeError(t, w).Message, "phase_code")
}
