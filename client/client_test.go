// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/autosave"
	"github.com/danielhkuo/panelsurvey/client"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/router"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/testutil"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.SeedQuestionnaire(t, store.NewSQLStore(db))

	srv := httptest.NewServer(router.NewRouter(db, testutil.GetTestConfig(), middleware.NewRateLimiter(1000, 1000)))
	t.Cleanup(srv.Close)
	return srv
}

func flatten(steps [][]models.Question) []models.Question {
	var out []models.Question
	for _, s := range steps {
		out = append(out, s...)
	}
	return out
}

func TestClientWithAutosave(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := client.New(srv.URL)

	start, err := c.Start(ctx, "Ani Wijaya", "081234567890")
	require.NoError(t, err)
	assert.True(t, start.IsNew)
	assert.Equal(t, start.SessionToken, c.Token())

	view, err := c.OpenPhase(ctx, start.PhaseCode)
	require.NoError(t, err)

	co := autosave.New(c, autosave.Config{
		PhaseCode: view.Phase.Code,
		Questions: flatten(view.Steps),
		StepSize:  testutil.GetTestConfig().StepSize,
		Step:      view.CurrentStep,
		Answers:   view.Answers,
		Quiet:     10 * time.Millisecond,
	})
	defer co.Close()

	co.Set("affiliation", models.TextValue("Academia"))
	co.Set("university", models.TextValue("Universitas Indonesia"))
	require.NoError(t, co.Advance(ctx))

	// The advance saved the first step; resuming shows it
	state, err := c.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Academia", state.SavedResponses["affiliation"].Text)

	co.Set("country_base", models.TextValue("Indonesia"))
	res, err := co.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P2", res.NextPhase)

	// P3 is locked; the error carries the redirect
	_, err = c.OpenPhase(ctx, "P3")
	to, ok := client.RedirectFor(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "P2", to.PhaseCode)

	qs, err := c.Questions(ctx, "P2")
	require.NoError(t, err)
	assert.Len(t, qs, 3)
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := client.New(srv.URL)

	c.SetToken("bogus")
	_, err := c.Resume(ctx)
	assert.True(t, client.SessionExpired(err), "got %v", err)

	_, err = c.Start(ctx, "Ani Wijaya", "0812")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "phone", apiErr.QuestionCode)

	start, err := c.Start(ctx, "Ani Wijaya", "081234567890")
	require.NoError(t, err)
	err = c.SaveAnswers(ctx, start.PhaseCode, 0, map[string]models.AnswerValue{"affiliation": models.TextValue("Pirate")})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "affiliation", apiErr.QuestionCode)
}

func TestClientRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "try again")
			return
		}
		assert.Equal(t, "tok", r.Header.Get(client.SessionHeader))
		json.NewEncoder(w).Encode(models.CompletePhaseResponse{Success: true, PhaseCompleted: "P1", NextPhase: "P2"})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetToken("tok")
	res, err := c.CompletePhase(context.Background(), "P1", nil)
	require.NoError(t, err)
	assert.Equal(t, "P2", res.NextPhase)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		middleware.ErrorResponse(w, http.StatusBadRequest, "nope")
	}))
	defer srv.Close()

	err := client.New(srv.URL).SaveAnswers(context.Background(), "P1", 0, map[string]models.AnswerValue{"x": models.TextValue("y")})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "nope", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}
