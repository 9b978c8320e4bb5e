// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/danielhkuo/panelsurvey/models"
)

const (
	// maxTextSamples bounds free-text answers per question sent to the model
	maxTextSamples = 60
	// minTextRunes drops answers like "no", "n/a" or "-"
	minTextRunes = 4
	maxTokens    = 1500
)

var ErrNoAnswers = errors.New("no answers to summarize")

const systemPrompt = "You are an expert data analyst that provides deep, actionable content summaries."

const userPrompt = `I have aggregated the collected answers from a recent survey, grouped by question:

%s

Provide a detailed analytical summary of what respondents actually answered. Do not discuss completion rates or drop-off.
Cover the key themes and recurring sentiments, the actionable patterns they imply, and concrete follow-up actions for participants and stakeholders.
Output clean Markdown with headers, bullet points and bold text for emphasis.`

// DigestItem is the condensed view of one question's answers
type DigestItem struct {
	Question string              `json:"question"`
	Type     models.QuestionType `json:"type"`
	Data     any                 `json:"data"`
}

type likertDigest struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// BuildDigest condenses answers per question: option counts for choice
// questions, score statistics for likert questions and a bounded sample of
// free text.
func BuildDigest(records []models.ResponseRecord) []DigestItem {
	type group struct {
		prompt string
		qtype  models.QuestionType
		values []models.AnswerValue
	}
	groups := map[string]*group{}
	var order []string

	for _, r := range records {
		if r.Value.IsEmpty() {
			continue
		}
		g, ok := groups[r.QuestionCode]
		if !ok {
			g = &group{prompt: r.QuestionPrompt, qtype: r.QuestionType}
			groups[r.QuestionCode] = g
			order = append(order, r.QuestionCode)
		}
		g.values = append(g.values, r.Value)
	}
	slices.Sort(order)

	items := make([]DigestItem, 0, len(order))
	for _, code := range order {
		g := groups[code]
		item := DigestItem{Question: g.prompt, Type: g.qtype}

		switch g.qtype {
		case models.QuestionSingleChoice, models.QuestionMultiSelect:
			counts := map[string]int{}
			for _, v := range g.values {
				for _, s := range v.Strings() {
					counts[s]++
				}
			}
			item.Data = counts
		case models.QuestionLikert:
			var d likertDigest
			var sum float64
			for _, v := range g.values {
				if v.Kind != models.KindNumber {
					continue
				}
				if d.Count == 0 || v.Number < d.Min {
					d.Min = v.Number
				}
				if d.Count == 0 || v.Number > d.Max {
					d.Max = v.Number
				}
				sum += v.Number
				d.Count++
			}
			if d.Count == 0 {
				continue
			}
			d.Average = round2(sum / float64(d.Count))
			item.Data = d
		default:
			var texts []string
			for _, v := range g.values {
				s := strings.TrimSpace(v.String())
				if utf8.RuneCountInString(s) >= minTextRunes {
					texts = append(texts, s)
				}
				if len(texts) == maxTextSamples {
					break
				}
			}
			if len(texts) == 0 {
				continue
			}
			item.Data = texts
		}
		items = append(items, item)
	}
	return items
}

// Summarizer asks an OpenAI-compatible chat model for a markdown summary
type Summarizer struct {
	client *openai.Client
	model  string
}

// NewSummarizer creates a summarizer. baseURL may point at any
// OpenAI-compatible endpoint; empty uses the default.
func NewSummarizer(apiKey, model, baseURL string) *Summarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	slog.Info("AI summary enabled", "model", model)
	return &Summarizer{client: openai.NewClientWithConfig(cfg), model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, items []DigestItem) (string, error) {
	if len(items) == 0 {
		return "", ErrNoAnswers
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode digest: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPrompt, data)},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("model returned no summary")
	}

	slog.Debug("summary generated", "finish_reason", resp.Choices[0].FinishReason, "questions", len(items))
	return resp.Choices[0].Message.Content, nil
}
