// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/danielhkuo/panelsurvey/models"
)

const (
	DefaultTimeout = 15 * time.Second
	// SessionHeader must match handlers.SessionHeader
	SessionHeader = "X-Session-Token"

	retryMaxElapsed = 20 * time.Second
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status       int
	Message      string
	QuestionCode string
	Redirect     *models.ResumePoint
}

func (e *APIError) Error() string {
	if e.QuestionCode != "" {
		return fmt.Sprintf("%s (status %d, question %s)", e.Message, e.Status, e.QuestionCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// SessionExpired reports whether err means the respondent must sign in again
func SessionExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// RedirectFor returns where the server sent the respondent instead, if err
// is a locked-phase answer.
func RedirectFor(err error) (models.ResumePoint, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Redirect != nil {
		return *apiErr.Redirect, true
	}
	return models.ResumePoint{}, false
}

// Client talks to the respondent API. It holds the session token from Start
// and implements autosave.Saver.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Token returns the current session token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken restores a session token saved from an earlier Start
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func newRetryBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = retryMaxElapsed
	return backoff.WithContext(bo, ctx)
}

// do sends one JSON request and decodes the answer into out. Transport
// failures, 429 and 503 are retried; other errors are returned at once.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var respBody []byte
	op := func() error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.Token(); token != "" {
			req.Header.Set(SessionHeader, token)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		apiErr := decodeError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if err := backoff.Retry(op, newRetryBackoff(ctx)); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) *APIError {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || (er.Message == "" && er.Error == "") {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	msg := er.Message
	if msg == "" {
		msg = er.Error
	}
	return &APIError{Status: status, Message: msg, QuestionCode: er.QuestionCode, Redirect: er.Redirect}
}

// Start registers or signs in again and keeps the session token
func (c *Client) Start(ctx context.Context, fullName, phone string) (*models.StartResponse, error) {
	var resp models.StartResponse
	err := c.do(ctx, http.MethodPost, "/api/respondent/start", models.StartRequest{FullName: fullName, Phone: phone}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.SessionToken)
	return &resp, nil
}

func (c *Client) Resume(ctx context.Context) (*models.ResumeResponse, error) {
	var resp models.ResumeResponse
	if err := c.do(ctx, http.MethodGet, "/api/respondent/resume", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Questions(ctx context.Context, phaseCode string) ([]models.Question, error) {
	var resp models.QuestionsResponse
	path := "/api/survey/questions?" + url.Values{"phase": {phaseCode}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// OpenPhase fetches the phase view. A locked phase fails with an APIError
// that RedirectFor understands.
func (c *Client) OpenPhase(ctx context.Context, phaseCode string) (*models.PhaseViewResponse, error) {
	var resp models.PhaseViewResponse
	if err := c.do(ctx, http.MethodGet, "/api/survey/phases/"+url.PathEscape(phaseCode), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type answersBody struct {
	PhaseCode string                        `json:"phase_code"`
	Step      int                           `json:"step"`
	Answers   map[string]models.AnswerValue `json:"answers,omitempty"`
}

func (c *Client) SaveAnswers(ctx context.Context, phaseCode string, step int, answers map[string]models.AnswerValue) error {
	return c.do(ctx, http.MethodPost, "/api/responses/save", answersBody{PhaseCode: phaseCode, Step: step, Answers: answers}, nil)
}

func (c *Client) CompletePhase(ctx context.Context, phaseCode string, answers map[string]models.AnswerValue) (*models.CompletePhaseResponse, error) {
	var resp models.CompletePhaseResponse
	err := c.do(ctx, http.MethodPost, "/api/phase/complete", answersBody{PhaseCode: phaseCode, Answers: answers}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
