// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package autosave

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/danielhkuo/panelsurvey/metrics"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/survey"
)

// DefaultQuiet is the debounce window after the last edit
const DefaultQuiet = 1800 * time.Millisecond

var (
	ErrLastStep    = errors.New("already on the last step, complete the phase instead")
	ErrNotLastStep = errors.New("phase can only be completed from its last step")
	ErrClosed      = errors.New("coordinator is closed")
)

// Saver persists answers for one phase. client.Client implements it over
// HTTP.
type Saver interface {
	SaveAnswers(ctx context.Context, phaseCode string, step int, answers map[string]models.AnswerValue) error
	CompletePhase(ctx context.Context, phaseCode string, answers map[string]models.AnswerValue) (*models.CompletePhaseResponse, error)
}

type Config struct {
	PhaseCode string
	Questions []models.Question
	StepSize  int
	// Step and Answers restore a resumed phase. Answers may include other
	// phases; they feed visibility but are never sent.
	Step    int
	Answers survey.Answers
	Quiet   time.Duration
}

// Status is a snapshot for a "saving..." indicator
type Status struct {
	Saving      bool
	Dirty       bool
	LastSavedAt time.Time
	LastError   error
}

// Coordinator owns one phase's in-memory answers and a single debounce
// timer. Every edit is kept immediately; a save of all answered questions
// is sent once edits go quiet. At most one save is in flight.
type Coordinator struct {
	saver Saver
	phase string
	codes map[string]bool
	steps [][]models.Question
	vis   survey.Visibility
	quiet time.Duration

	mu         sync.Mutex
	answers    survey.Answers
	step       int
	version    uint64
	saved      uint64
	savedStep  int
	timer      *time.Timer
	timerGen   uint64
	inFlight   bool
	flightDone chan struct{}
	pending    bool
	lastSaved  time.Time
	lastErr    error
	closed     bool
}

func New(saver Saver, cfg Config) *Coordinator {
	quiet := cfg.Quiet
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	codes := make(map[string]bool, len(cfg.Questions))
	for _, q := range cfg.Questions {
		codes[q.Code] = true
	}

	answers := make(survey.Answers, len(cfg.Answers))
	maps.Copy(answers, cfg.Answers)

	steps := survey.Partition(cfg.Questions, cfg.StepSize)
	step := survey.ClampStep(cfg.Step, len(steps))

	return &Coordinator{
		saver:     saver,
		phase:     cfg.PhaseCode,
		codes:     codes,
		steps:     steps,
		vis:       survey.NewVisibility(cfg.Questions),
		quiet:     quiet,
		answers:   answers,
		step:      step,
		savedStep: step,
	}
}

// Set records an edit and restarts the quiet period
func (c *Coordinator) Set(code string, v models.AnswerValue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.answers[code] = v
	c.version++
	c.scheduleLocked()
}

// scheduleLocked replaces any pending timer with a fresh one
func (c *Coordinator) scheduleLocked() {
	if c.closed {
		return
	}
	c.stopTimerLocked()
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.quiet, func() { c.fire(gen) })
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A callback that already started sees a stale generation and exits
	c.timerGen++
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen || c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		return
	}
	if !c.dirtyLocked() {
		c.mu.Unlock()
		return
	}
	snapshot, version, step := c.beginFlightLocked()
	c.mu.Unlock()

	err := c.saver.SaveAnswers(context.Background(), c.phase, step, snapshot)
	if err != nil {
		// Swallowed: the answers stay in memory and go out with the next
		// edit or transition.
		slog.Warn("autosave failed", "phase", c.phase, "error", err)
	}
	c.endFlight(version, step, err)
}

func (c *Coordinator) dirtyLocked() bool {
	return c.version != c.saved || c.step != c.savedStep || c.lastErr != nil
}

// snapshotLocked returns every answered question of this phase
func (c *Coordinator) snapshotLocked() map[string]models.AnswerValue {
	out := make(map[string]models.AnswerValue, len(c.answers))
	for code, v := range c.answers {
		if c.codes[code] && v.Kind != 0 {
			out[code] = v
		}
	}
	return out
}

func (c *Coordinator) beginFlightLocked() (map[string]models.AnswerValue, uint64, int) {
	c.inFlight = true
	c.flightDone = make(chan struct{})
	return c.snapshotLocked(), c.version, c.step
}

func (c *Coordinator) endFlight(version uint64, step int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
	close(c.flightDone)
	metrics.RecordAutosave(err)

	if err != nil {
		c.lastErr = err
	} else {
		c.lastErr = nil
		c.saved = version
		c.savedStep = step
		c.lastSaved = time.Now()
	}

	// Edits that arrived mid-flight get their own attempt
	if c.pending || (err == nil && c.version != version) {
		c.pending = false
		c.scheduleLocked()
	}
}

// waitIdleLocked cancels the pending timer and waits out any flight. It
// returns with mu held.
func (c *Coordinator) waitIdleLocked(ctx context.Context) error {
	for {
		c.stopTimerLocked()
		c.pending = false
		if !c.inFlight {
			return nil
		}
		done := c.flightDone
		c.mu.Unlock()
		select {
		case <-done:
			c.mu.Lock()
		case <-ctx.Done():
			c.mu.Lock()
			return ctx.Err()
		}
	}
}

// Flush saves synchronously, skipping the debounce. It returns the save
// error so transitions can decide whether to proceed.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if err := c.waitIdleLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.dirtyLocked() {
		c.mu.Unlock()
		return nil
	}
	snapshot, version, step := c.beginFlightLocked()
	if len(snapshot) == 0 {
		// Nothing answered yet; there is nothing the server would accept
		c.inFlight = false
		close(c.flightDone)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.saver.SaveAnswers(ctx, c.phase, step, snapshot)
	c.endFlight(version, step, err)
	return err
}

// Advance validates the current step and moves to the next one. The save
// that follows is best effort: navigation within a phase does not wait for
// it to succeed.
func (c *Coordinator) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.step >= len(c.steps)-1 {
		c.mu.Unlock()
		return ErrLastStep
	}
	if verr := survey.ValidateStep(c.steps[c.step], c.answers, c.vis); verr != nil {
		c.mu.Unlock()
		return verr
	}
	c.step++
	c.mu.Unlock()

	if err := c.Flush(ctx); err != nil {
		slog.Debug("save after step change failed", "phase", c.phase, "error", err)
	}
	return nil
}

// Back moves to the previous step without validation
func (c *Coordinator) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step > 0 {
		c.step--
	}
}

// Complete validates the last step, requires a successful save and then
// completes the phase. The coordinator is closed on success.
func (c *Coordinator) Complete(ctx context.Context) (*models.CompletePhaseResponse, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.step < len(c.steps)-1 {
		c.mu.Unlock()
		return nil, ErrNotLastStep
	}
	if len(c.steps) > 0 {
		if verr := survey.ValidateStep(c.steps[c.step], c.answers, c.vis); verr != nil {
			c.mu.Unlock()
			return nil, verr
		}
	}
	c.mu.Unlock()

	if err := c.Flush(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	res, err := c.saver.CompletePhase(ctx, c.phase, snapshot)
	if err != nil {
		return nil, err
	}

	c.Close()
	return res, nil
}

// Close stops the timer; later edits are kept but never sent
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.closed = true
}

func (c *Coordinator) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Coordinator) StepCount() int {
	return len(c.steps)
}

// Answers returns a copy of the in-memory answers
func (c *Coordinator) Answers() survey.Answers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.answers)
}

// VisibleQuestions returns the current step's questions that are live
func (c *Coordinator) VisibleQuestions() []models.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.steps) == 0 {
		return nil
	}
	var out []models.Question
	for _, q := range c.steps[c.step] {
		if c.vis.Visible(q, c.answers) {
			out = append(out, q)
		}
	}
	return out
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Saving:      c.inFlight,
		Dirty:       c.dirtyLocked(),
		LastSavedAt: c.lastSaved,
		LastError:   c.lastErr,
	}
}
