// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/panelsurvey/cliparse"
	"github.com/danielhkuo/panelsurvey/db"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/phone"
	"github.com/danielhkuo/panelsurvey/store"
)

// TestSessionSecret signs admin sessions in tests
const TestSessionSecret = "test-session-secret"

// SetupTestDB opens a private in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		DatabaseURL:        ":memory:",
		DatabaseType:       db.TypeSQLite,
		AdminSessionSecret: TestSessionSecret,
		ConfirmPhrase:      cliparse.DefaultConfirmPhrase,
		StepSize:           cliparse.DefaultStepSize,
		AutosaveDebounce:   20 * time.Millisecond,
		Phone:              phone.DefaultPolicy(),
		RegisterRate:       1000,
		OpenAIModel:        cliparse.DefaultOpenAIModel,
	}
}

// Fixture indexes the seeded questionnaire by code
type Fixture struct {
	Phases    map[string]models.Phase
	Questions map[string]models.Question
}

// SeedQuestionnaire installs a three-phase questionnaire:
//
//	P1: affiliation (single choice, "Other" follow-up), university (Academia
//	    only), company (Industry only), country_base
//	P2: priorities (multi-select, 1..2), satisfaction (likert), comments
//	    (optional long text)
//	P3: recommend (single choice)
func SeedQuestionnaire(t *testing.T, st store.AdminStore) Fixture {
	t.Helper()
	ctx := context.Background()

	fx := Fixture{Phases: map[string]models.Phase{}, Questions: map[string]models.Question{}}

	phases := []models.Phase{
		{Code: "P1", Name: "Profile", SortOrder: 1, Active: true},
		{Code: "P2", Name: "Priorities", SortOrder: 2, Active: true},
		{Code: "P3", Name: "Wrap-up", SortOrder: 3, Active: true},
	}
	for _, p := range phases {
		stored, err := st.UpsertPhase(ctx, p)
		if err != nil {
			t.Fatalf("Failed to seed phase %s: %v", p.Code, err)
		}
		fx.Phases[p.Code] = *stored
	}

	questions := []struct {
		phase string
		q     models.Question
	}{
		{"P1", models.Question{
			Code: "affiliation", Prompt: "Where do you work?", Type: models.QuestionSingleChoice,
			Options: []string{"Academia", "Industry", "Government", "Other"}, Required: true,
			FollowUp: &models.FollowUp{Option: "Other", QuestionCode: "affiliation_other"},
		}},
		{"P1", models.Question{
			Code: "affiliation_other", Prompt: "Please specify your affiliation", Type: models.QuestionShortText, Required: true,
		}},
		{"P1", models.Question{
			Code: "university", Prompt: "Which university?", Type: models.QuestionShortText, Required: true,
			ShowIf: &models.ShowIf{QuestionCode: "affiliation", AnswerIn: []string{"Academia"}},
		}},
		{"P1", models.Question{
			Code: "company", Prompt: "Which company?", Type: models.QuestionShortText, Required: true,
			ShowIf: &models.ShowIf{QuestionCode: "affiliation", AnswerIn: []string{"Industry"}},
		}},
		{"P1", models.Question{
			Code: "country_base", Prompt: "Where are you based?", Type: models.QuestionSingleChoice,
			Options: []string{"Indonesia", "Overseas"}, Required: true,
		}},
		{"P2", models.Question{
			Code: "priorities", Prompt: "Pick your top priorities", Type: models.QuestionMultiSelect,
			Options: []string{"Funding", "Talent", "Regulation", "Infrastructure"}, SelectionMin: 1, SelectionMax: 2, Required: true,
		}},
		{"P2", models.Question{
			Code: "satisfaction", Prompt: "How satisfied are you?", Type: models.QuestionLikert, Required: true,
		}},
		{"P2", models.Question{
			Code: "comments", Prompt: "Anything else?", Type: models.QuestionLongText,
		}},
		{"P3", models.Question{
			Code: "recommend", Prompt: "Would you recommend this panel?", Type: models.QuestionSingleChoice,
			Options: []string{"Yes", "No"}, Required: true,
		}},
	}
	for i, item := range questions {
		q := item.q
		q.PhaseID = fx.Phases[item.phase].ID
		q.SortOrder = i + 1
		q.Active = true
		stored, err := st.UpsertQuestion(ctx, q)
		if err != nil {
			t.Fatalf("Failed to seed question %s: %v", q.Code, err)
		}
		fx.Questions[q.Code] = *stored
	}

	return fx
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
