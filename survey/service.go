// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/panelsurvey/metrics"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/phone"
	"github.com/danielhkuo/panelsurvey/store"
)

const minNameRunes = 2

// Service runs the respondent-facing workflow: registration, resume, phase
// entry, autosave and phase completion.
type Service struct {
	store    store.Store
	policy   phone.Policy
	stepSize int
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(st store.Store, policy phone.Policy, stepSize int) *Service {
	if stepSize < 1 {
		stepSize = DefaultStepSize
	}
	return &Service{
		store:    st,
		policy:   policy,
		stepSize: stepSize,
		tracer:   otel.Tracer("github.com/danielhkuo/panelsurvey/survey"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) StepSize() int {
	return s.stepSize
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// audit records an event; failures are logged and otherwise ignored
func (s *Service) audit(ctx context.Context, ev models.AuditEvent) {
	if err := s.store.LogEvent(ctx, ev); err != nil {
		slog.Warn("failed to write audit event", "event", ev.EventType, "entity_id", ev.EntityID, "error", err)
	}
}

// Registration

type Registration struct {
	Respondent models.Respondent
	Session    models.Session
	IsNew      bool
	Resume     models.ResumePoint
}

// Register identifies a respondent by phone key, creating them on first
// contact, and binds an active session.
func (s *Service) Register(ctx context.Context, fullName, rawPhone string) (reg *Registration, err error) {
	ctx, span := s.startSpan(ctx, "survey.Register")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(fullName)
	if utf8.RuneCountInString(name) < minNameRunes {
		return nil, ErrInvalidName
	}

	check := s.policy.Validate(rawPhone)
	if !check.Valid {
		return nil, &ValidationError{QuestionCode: "phone", Message: check.Reason}
	}

	reg = &Registration{}
	err = s.store.InTx(ctx, func(tx store.Store) error {
		resp, created, err := tx.UpsertRespondent(ctx, models.Respondent{
			FullName:        name,
			PhoneRaw:        strings.TrimSpace(rawPhone),
			PhoneNormalized: check.Normalized,
		})
		if err != nil {
			return err
		}

		session, err := tx.GetActiveSession(ctx, resp.ID)
		if errors.Is(err, store.ErrNotFound) {
			session, err = tx.CreateSession(ctx, resp.ID)
		}
		if err != nil {
			return err
		}

		resume, err := s.resolve(ctx, tx, resp.ID)
		if err != nil {
			return err
		}
		if err := tx.SetRespondentCurrentPhase(ctx, resp.ID, currentPhaseMarker(resume)); err != nil {
			return err
		}
		resp.CurrentPhase = currentPhaseMarker(resume)

		reg.Respondent = *resp
		reg.Session = *session
		reg.IsNew = created
		reg.Resume = resume
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := "resumed_session"
	if reg.IsNew {
		event = "created"
	}
	s.audit(ctx, models.AuditEvent{
		ActorType:  models.ActorRespondent,
		ActorID:    reg.Respondent.ID,
		EventType:  event,
		EntityType: "respondent",
		EntityID:   reg.Respondent.ID,
		Payload:    map[string]any{"session_id": reg.Session.ID},
	})
	metrics.RecordRegistration(reg.IsNew)
	span.SetAttributes(attribute.Bool("respondent.new", reg.IsNew))

	return reg, nil
}

// currentPhaseMarker is the display cache stored on the respondent
func currentPhaseMarker(p models.ResumePoint) string {
	if p.Done {
		return models.CurrentPhaseCompleted
	}
	return p.PhaseCode
}

func (s *Service) resolve(ctx context.Context, st store.Store, respondentID string) (models.ResumePoint, error) {
	phases, err := st.ListActivePhasesOrdered(ctx)
	if err != nil {
		return models.ResumePoint{}, err
	}
	progress, err := st.GetProgress(ctx, respondentID)
	if err != nil {
		return models.ResumePoint{}, err
	}
	return Resolve(phases, ProgressByPhase(progress)), nil
}

// authenticate loads the session and respondent behind a token
func (s *Service) authenticate(ctx context.Context, token string) (*models.Respondent, *models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, ErrInvalidSession
	}

	session, err := s.store.GetSessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidSession
	}
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.store.GetRespondent(ctx, session.RespondentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrRespondentMissing
	}
	if err != nil {
		return nil, nil, err
	}
	if resp.Status != models.RespondentActive {
		return nil, nil, ErrInvalidSession
	}

	return resp, session, nil
}

// Resume

type ResumeState struct {
	Respondent models.Respondent
	Session    models.Session
	Phases     []models.PhaseWithProgress
	Answers    Answers
	Resume     models.ResumePoint
}

func (s *Service) Resume(ctx context.Context, token string) (state *ResumeState, err error) {
	ctx, span := s.startSpan(ctx, "survey.Resume")
	defer func() { endSpan(span, err) }()

	resp, session, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	phases, err := s.store.ListActivePhasesOrdered(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.GetProgress(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.GetAnswers(ctx, resp.ID)
	if err != nil {
		return nil, err
	}

	progress := ProgressByPhase(rows)
	state = &ResumeState{
		Respondent: *resp,
		Session:    *session,
		Phases:     make([]models.PhaseWithProgress, 0, len(phases)),
		Answers:    answerMap(answers),
		Resume:     Resolve(phases, progress),
	}
	for _, ph := range sortedPhases(phases) {
		p, ok := progress[ph.ID]
		if !ok {
			p = models.PhaseProgress{RespondentID: resp.ID, PhaseID: ph.ID, Status: models.ProgressNotStarted}
		}
		state.Phases = append(state.Phases, models.PhaseWithProgress{Phase: ph, Progress: p})
	}

	if session.Status == models.SessionActive {
		if err := s.store.TouchSession(ctx, session.ID, "", 0); err != nil {
			slog.Warn("failed to touch session", "session_id", session.ID, "error", err)
		}
	}

	return state, nil
}

func answerMap(answers []models.Answer) Answers {
	m := make(Answers, len(answers))
	for _, a := range answers {
		m[a.QuestionCode] = a.Value
	}
	return m
}

// Phase entry

type PhaseView struct {
	Phase             models.Phase
	Status            string
	Questions         []models.Question
	Steps             [][]models.Question
	CurrentStep       int
	Answers           Answers
	VisibleCodes      []string
	CompletionPercent int
}

// guard loads phases and progress and applies the phase lock. A locked
// request returns *PhaseLockedError.
func (s *Service) guard(ctx context.Context, st store.Store, respondentID, code string) (models.Phase, []models.Phase, map[string]models.PhaseProgress, error) {
	phases, err := st.ListActivePhasesOrdered(ctx)
	if err != nil {
		return models.Phase{}, nil, nil, err
	}
	rows, err := st.GetProgress(ctx, respondentID)
	if err != nil {
		return models.Phase{}, nil, nil, err
	}
	progress := ProgressByPhase(rows)

	decision, err := Guard(phases, progress, code)
	if err != nil {
		return models.Phase{}, nil, nil, err
	}
	if !decision.Allowed {
		metrics.RecordPhaseRedirect(code)
		return decision.Phase, phases, progress, &PhaseLockedError{Requested: code, Redirect: decision.Redirect}
	}
	return decision.Phase, phases, progress, nil
}

// OpenPhase returns everything needed to render a phase the respondent is
// allowed to enter.
func (s *Service) OpenPhase(ctx context.Context, token, code string) (view *PhaseView, err error) {
	ctx, span := s.startSpan(ctx, "survey.OpenPhase", attribute.String("phase", code))
	defer func() { endSpan(span, err) }()

	resp, session, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	phase, _, progress, err := s.guard(ctx, s.store, resp.ID, code)
	if err != nil {
		return nil, err
	}

	questions, err := s.store.ListQuestions(ctx, phase.ID)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.GetAnswers(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	all := answerMap(saved)

	steps := Partition(questions, s.stepSize)
	p, ok := progress[phase.ID]
	status := models.ProgressNotStarted
	step := 0
	if ok {
		status = p.Status
		if p.Status == models.ProgressInProgress {
			step = ClampStep(p.LastStep, len(steps))
		}
	}

	phaseAnswers := make(Answers)
	for _, q := range questions {
		if v, ok := all[q.Code]; ok {
			phaseAnswers[q.Code] = v
		}
	}

	view = &PhaseView{
		Phase:             phase,
		Status:            status,
		Questions:         questions,
		Steps:             steps,
		CurrentStep:       step,
		Answers:           phaseAnswers,
		VisibleCodes:      NewVisibility(questions).VisibleCodes(questions, all),
		CompletionPercent: CompletionPercent(questions, all),
	}

	if session.Status == models.SessionActive {
		if err := s.store.TouchSession(ctx, session.ID, phase.Code, step); err != nil {
			slog.Warn("failed to touch session", "session_id", session.ID, "error", err)
		}
	}

	return view, nil
}

// QuestionsForPhase lists the active questions of an active phase
func (s *Service) QuestionsForPhase(ctx context.Context, code string) ([]models.Question, error) {
	phase, err := s.store.GetPhaseByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPhaseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !phase.Active {
		return nil, ErrPhaseNotFound
	}
	return s.store.ListQuestions(ctx, phase.ID)
}

// Autosave

type SaveResult struct {
	Saved   int
	Skipped int
	SavedAt time.Time
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// coerceAll decodes raw answers against the phase's questions. Null values
// are dropped and counted.
func coerceAll(questions []models.Question, raw map[string]json.RawMessage) (Answers, int, error) {
	byCode := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byCode[q.Code] = q
	}

	out := make(Answers, len(raw))
	dropped := 0
	for code, value := range raw {
		q, ok := byCode[code]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrQuestionNotFound, code)
		}
		if isNull(value) {
			dropped++
			continue
		}
		v, err := CoerceAnswer(q, value)
		if err != nil {
			return nil, 0, err
		}
		out[code] = v
	}
	return out, dropped, nil
}

func toRows(resp *models.Respondent, session *models.Session, phase models.Phase, questions []models.Question, answers Answers) []models.Answer {
	rows := make([]models.Answer, 0, len(answers))
	for _, q := range questions {
		v, ok := answers[q.Code]
		if !ok {
			continue
		}
		rows = append(rows, models.Answer{
			RespondentID: resp.ID,
			QuestionID:   q.ID,
			QuestionCode: q.Code,
			PhaseID:      phase.ID,
			SessionID:    session.ID,
			Value:        v,
		})
	}
	return rows
}

// SaveAnswers is the autosave entry point. It upserts every submitted answer
// of one phase, marks the phase in_progress at step and bumps the session.
// Finalized answers are left untouched and counted as skipped.
func (s *Service) SaveAnswers(ctx context.Context, token, phaseCode string, step int, raw map[string]json.RawMessage) (res *SaveResult, err error) {
	ctx, span := s.startSpan(ctx, "survey.SaveAnswers",
		attribute.String("phase", phaseCode),
		attribute.Int("answers", len(raw)),
	)
	defer func() { endSpan(span, err) }()

	resp, session, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionActive {
		return nil, ErrSessionClosed
	}

	res = &SaveResult{}
	err = s.store.InTx(ctx, func(tx store.Store) error {
		phase, _, _, err := s.guard(ctx, tx, resp.ID, phaseCode)
		if err != nil {
			return err
		}

		questions, err := tx.ListQuestions(ctx, phase.ID)
		if err != nil {
			return err
		}
		answers, dropped, err := coerceAll(questions, raw)
		if err != nil {
			return err
		}

		rows := toRows(resp, session, phase, questions, answers)
		written, err := tx.UpsertAnswers(ctx, rows)
		if err != nil {
			return err
		}

		saved, err := tx.GetAnswers(ctx, resp.ID)
		if err != nil {
			return err
		}
		steps := Partition(questions, s.stepSize)
		step = ClampStep(step, len(steps))

		err = tx.UpsertProgress(ctx, models.PhaseProgress{
			RespondentID:      resp.ID,
			PhaseID:           phase.ID,
			Status:            models.ProgressInProgress,
			LastStep:          step,
			CompletionPercent: CompletionPercent(questions, answerMap(saved)),
		})
		if err != nil {
			return err
		}

		if err := tx.TouchSession(ctx, session.ID, phase.Code, step); err != nil {
			return err
		}

		res.Saved = written
		res.Skipped = len(rows) - written + dropped
		res.SavedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAnswersSaved(res.Saved, res.Skipped)
	return res, nil
}

// Completion

type Completion struct {
	PhaseCompleted string
	NextPhase      string
	Done           bool
}

// CompletePhase finalizes a phase. Submitted answers are saved first, then
// the whole phase is validated against the merged answer set; on success
// the phase is completed, its answers finalized and the respondent advanced.
// Everything happens in one transaction, so a failure leaves no trace.
// Completing an already completed phase reports the same outcome again.
func (s *Service) CompletePhase(ctx context.Context, token, phaseCode string, raw map[string]json.RawMessage) (out *Completion, err error) {
	ctx, span := s.startSpan(ctx, "survey.CompletePhase", attribute.String("phase", phaseCode))
	defer func() { endSpan(span, err) }()

	resp, session, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	phases, err := s.store.ListActivePhasesOrdered(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.GetProgress(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	progress := ProgressByPhase(rows)
	for _, ph := range phases {
		if ph.Code == phaseCode && progress[ph.ID].Status == models.ProgressCompleted {
			return completionFor(ph, Resolve(phases, progress)), nil
		}
	}

	if session.Status != models.SessionActive {
		return nil, ErrSessionClosed
	}

	err = s.store.InTx(ctx, func(tx store.Store) error {
		phase, phases, _, err := s.guard(ctx, tx, resp.ID, phaseCode)
		if err != nil {
			return err
		}

		questions, err := tx.ListQuestions(ctx, phase.ID)
		if err != nil {
			return err
		}
		submitted, _, err := coerceAll(questions, raw)
		if err != nil {
			return err
		}
		if _, err := tx.UpsertAnswers(ctx, toRows(resp, session, phase, questions, submitted)); err != nil {
			return err
		}

		saved, err := tx.GetAnswers(ctx, resp.ID)
		if err != nil {
			return err
		}
		if verr := ValidatePhase(questions, s.stepSize, answerMap(saved)); verr != nil {
			metrics.RecordValidationFailure()
			return verr
		}

		lastStep := max(len(Partition(questions, s.stepSize))-1, 0)
		err = tx.UpsertProgress(ctx, models.PhaseProgress{
			RespondentID:      resp.ID,
			PhaseID:           phase.ID,
			Status:            models.ProgressCompleted,
			LastStep:          lastStep,
			CompletionPercent: 100,
		})
		if err != nil {
			return err
		}

		if err := tx.FinalizeAnswers(ctx, resp.ID, phase.ID); err != nil {
			return err
		}

		// Later phases may already be completed by an import, so the pointer
		// follows the resolver rather than the next phase in order.
		rows, err := tx.GetProgress(ctx, resp.ID)
		if err != nil {
			return err
		}
		point := Resolve(phases, ProgressByPhase(rows))
		out = completionFor(phase, point)
		if out.Done {
			if err := tx.SetRespondentCurrentPhase(ctx, resp.ID, models.CurrentPhaseCompleted); err != nil {
				return err
			}
			return tx.CompleteSession(ctx, session.ID)
		}

		next := phaseByCode(phases, point.PhaseCode)
		if err := tx.SetRespondentCurrentPhase(ctx, resp.ID, next.Code); err != nil {
			return err
		}
		if err := tx.EnsureProgress(ctx, resp.ID, next.ID); err != nil {
			return err
		}
		return tx.TouchSession(ctx, session.ID, next.Code, point.Step)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, models.AuditEvent{
		ActorType:  models.ActorRespondent,
		ActorID:    resp.ID,
		EventType:  "phase_completed",
		EntityType: "phase",
		EntityID:   phaseCode,
		Payload:    map[string]any{"next_phase": out.NextPhase, "session_id": session.ID},
	})
	metrics.RecordPhaseCompletion(phaseCode)

	return out, nil
}

func completionFor(phase models.Phase, point models.ResumePoint) *Completion {
	if point.Done {
		return &Completion{PhaseCompleted: phase.Code, NextPhase: models.PhaseDone, Done: true}
	}
	return &Completion{PhaseCompleted: phase.Code, NextPhase: point.PhaseCode}
}

func phaseByCode(phases []models.Phase, code string) models.Phase {
	for _, ph := range phases {
		if ph.Code == code {
			return ph
		}
	}
	return models.Phase{}
}
