// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/auth"
	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/testutil"
)

const testAdminPassword = "correct horse battery staple"

type env struct {
	db  *sql.DB
	st  *store.SQLStore
	cfg cliparse.Config
	fx  testutil.Fixture

	respondent *RespondentHandler
	survey     *SurveyHandler
	admin      *AdminHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	hash, err := auth.HashPassword(testAdminPassword)
	require.NoError(t, err)

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.AdminPasswordHash = hash

	st := store.NewSQLStore(db)
	e := &env{
		db:         db,
		st:         st,
		cfg:        cfg,
		fx:         testutil.SeedQuestionnaire(t, st),
		respondent: NewRespondentHandler(db, cfg),
		survey:     NewSurveyHandler(db, cfg),
		admin:      NewAdminHandler(db, cfg),
	}
	e.admin.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return e
}

func call(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// start registers a respondent and returns the session token
func (e *env) start(t *testing.T, name, phone string) models.StartResponse {
	t.Helper()
	req := testutil.MakeRequest("POST", "/api/respondent/start", models.StartRequest{FullName: name, Phone: phone}, nil)
	w := call(e.respondent.Start, req)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())

	var resp models.StartResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func (e *env) save(token, phase string, step int, answers map[string]any) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/api/responses/save", map[string]any{
		"phase_code": phase,
		"step":       step,
		"answers":    answers,
	}, map[string]string{SessionHeader: token})
	return call(e.survey.SaveAnswers, req)
}

func (e *env) complete(token, phase string, answers map[string]any) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/api/phase/complete", map[string]any{
		"phase_code": phase,
		"answers":    answers,
	}, map[string]string{SessionHeader: token})
	return call(e.survey.CompletePhase, req)
}

func (e *env) openPhase(token, code string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("GET", "/api/survey/phases/"+code, nil, map[string]string{SessionHeader: token})
	req.SetPathValue("code", code)
	return call(e.survey.OpenPhase, req)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

var (
	p1Answers = map[string]any{
		"affiliation":  "Academia",
		"university":   "Universitas Indonesia",
		"country_base": "Indonesia",
	}
	p2Answers = map[string]any{
		"priorities":   []string{"Funding", "Talent"},
		"satisfaction": 6,
	}
	p3Answers = map[string]any{"recommend": "Yes"}
)
