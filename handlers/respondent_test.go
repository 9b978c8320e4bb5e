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

func TestStart(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		questionCode   string
	}{
		{"new respondent", models.StartRequest{FullName: "Ani Wijaya", Phone: "0812-3456-7890"}, http.StatusCreated, ""},
		{"same phone, other format", models.StartRequest{FullName: "Ani Wijaya", Phone: "+62 812 3456 7890"}, http.StatusOK, ""},
		{"missing phone", map[string]string{"full_name": "Ani"}, http.StatusBadRequest, ""},
		{"short name", models.StartRequest{FullName: "A", Phone: "081234567891"}, http.StatusBadRequest, ""},
		{"bad phone", models.StartRequest{FullName: "Budi", Phone: "12345"}, http.StatusBadRequest, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/respondent/start", tt.body, nil)
			w := call(e.respondent.Start, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.questionCode != "" {
				assert.Equal(t, tt.questionCode, decodeError(t, w).QuestionCode)
			}
		})
	}
}

func TestStart_ReturnsResumePoint(t *testing.T) {
	e := newEnv(t)

	first := e.start(t, "Ani Wijaya", "081234567890")
	assert.True(t, first.IsNew)
	assert.NotEmpty(t, first.SessionToken)
	assert.Equal(t, "P1", first.PhaseCode)

	testutil.AssertStatus(t, e.complete(first.SessionToken, "P1", p1Answers), http.StatusOK)

	again := e.start(t, "Ani Wijaya", "081234567890")
	assert.False(t, again.IsNew)
	assert.Equal(t, first.RespondentID, again.RespondentID)
	assert.Equal(t, first.SessionToken, again.SessionToken)
	assert.Equal(t, "P2", again.PhaseCode)
}

func TestResume(t *testing.T) {
	e := newEnv(t)
	start := e.start(t, "Ani Wijaya", "081234567890")
	testutil.AssertStatus(t, e.save(start.SessionToken, "P1", 1, map[string]any{"affiliation": "Industry"}), http.StatusOK)

	t.Run("header", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/api/respondent/resume", nil, map[string]string{SessionHeader: start.SessionToken})
		w := call(e.respondent.Resume, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.ResumeResponse
		testutil.AssertJSON(t, w, &resp)
		assert.Equal(t, "Ani Wijaya", resp.Respondent.FullName)
		assert.Equal(t, models.ResumePoint{PhaseCode: "P1", Step: 1}, resp.Resume)
		require.Len(t, resp.Phases, 3)
		assert.Equal(t, "Industry", resp.SavedResponses["affiliation"].Text)
	})

	t.Run("query parameter", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/api/respondent/resume?token="+start.SessionToken, nil, nil)
		testutil.AssertStatus(t, call(e.respondent.Resume, req), http.StatusOK)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/api/respondent/resume", nil, map[string]string{SessionHeader: "nope"})
		w := call(e.respondent.Resume, req)
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		assert.Equal(t, msgSignInAgain, decodeError(t, w).Message)
	})
}

func TestRespondentLogout(t *testing.T) {
	e := newEnv(t)
	start := e.start(t, "Ani Wijaya", "081234567890")

	w := call(e.respondent.Logout, testutil.MakeRequest("POST", "/api/logout", nil, map[string]string{SessionHeader: start.SessionToken}))
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.MessageResponse
	testutil.AssertJSON(t, w, &resp)
	assert.True(t, resp.Success)

	// Signing in again picks the same respondent back up
	again := e.start(t, "Ani Wijaya", "081234567890")
	assert.Equal(t, start.RespondentID, again.RespondentID)
}
