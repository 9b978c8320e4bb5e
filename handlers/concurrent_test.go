// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/testutil"
)

// TestConcurrentRegistrationSamePhone verifies that simultaneous sign-ins with
// one phone number produce a single respondent and session
func TestConcurrentRegistrationSamePhone(t *testing.T) {
	e := newEnv(t)

	const attempts = 10
	var (
		created atomic.Int32
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		tokens  = map[string]bool{}
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/api/respondent/start",
				models.StartRequest{FullName: "Ani Wijaya", Phone: "081234567890"}, nil)
			w := call(e.respondent.Start, req)

			var resp models.StartResponse
			if w.Code == http.StatusCreated {
				created.Add(1)
			}
			if !assert.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String()) {
				return
			}
			if !assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)) {
				return
			}

			mu.Lock()
			ids[resp.RespondentID] = true
			tokens[resp.SessionToken] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "exactly one request creates the respondent")
	assert.Len(t, ids, 1)
	assert.Len(t, tokens, 1)
}

// TestConcurrentAutosaves verifies that overlapping autosaves from many
// respondents keep one answer row per question and never cross respondents
func TestConcurrentAutosaves(t *testing.T) {
	e := newEnv(t)

	const respondents = 8
	people := make([]models.StartResponse, respondents)
	for i := range people {
		people[i] = e.start(t, fmt.Sprintf("Respondent %c", 'A'+i), fmt.Sprintf("08123456780%d", i))
	}

	var (
		failures atomic.Int32
		wg       sync.WaitGroup
	)
	for i, p := range people {
		for round := 0; round < 3; round++ {
			wg.Add(1)
			go func(token, company string) {
				defer wg.Done()
				w := e.save(token, "P1", 1, map[string]any{"affiliation": "Industry", "company": company})
				if w.Code != http.StatusOK {
					failures.Add(1)
				}
			}(p.SessionToken, fmt.Sprintf("Company %d", i))
		}
	}
	wg.Wait()
	require.Zero(t, failures.Load())

	ctx := context.Background()
	for i, p := range people {
		saved, err := e.st.GetAnswers(ctx, p.RespondentID)
		require.NoError(t, err)
		require.Len(t, saved, 2, "respondent %d", i)
		for _, a := range saved {
			if a.QuestionCode == "company" {
				assert.Equal(t, fmt.Sprintf("Company %d", i), a.Value.Text)
			}
		}
	}
}
