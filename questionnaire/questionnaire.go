// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package questionnaire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
)

// otherOptions trigger an automatic "please specify" question
var otherOptions = []string{"Other", "Others"}

// File is the YAML questionnaire document
type File struct {
	Phases []Phase `yaml:"phases" validate:"required,min=1,dive"`
}

type Phase struct {
	Code      string     `yaml:"code" validate:"required"`
	Name      string     `yaml:"name" validate:"required"`
	SortOrder int        `yaml:"sort_order"`
	Active    *bool      `yaml:"active"`
	Questions []Question `yaml:"questions" validate:"dive"`
}

type Question struct {
	Code         string           `yaml:"code" validate:"required"`
	Prompt       string           `yaml:"prompt" validate:"required"`
	HelpText     string           `yaml:"help_text"`
	Type         string           `yaml:"type" validate:"required,oneof=single_choice multi_select likert short_text long_text"`
	Options      []string         `yaml:"options" validate:"dive,required"`
	SelectionMin int              `yaml:"selection_min" validate:"gte=0"`
	SelectionMax int              `yaml:"selection_max" validate:"gte=0"`
	Required     bool             `yaml:"required"`
	ShowIf       *models.ShowIf   `yaml:"show_if"`
	FollowUp     *models.FollowUp `yaml:"follow_up"`
	Active       *bool            `yaml:"active"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load decodes and checks a questionnaire. Unknown keys are rejected.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("questionnaire is empty")
		}
		return nil, fmt.Errorf("failed to parse questionnaire: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid questionnaire: %w", err)
	}
	f.addOtherFollowUps()
	if err := f.check(); err != nil {
		return nil, fmt.Errorf("invalid questionnaire: %w", err)
	}
	return &f, nil
}

// LoadFile reads a questionnaire from disk
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// addOtherFollowUps inserts an optional "<code>_other" text question after
// every choice question offering "Other", unless one is declared.
func (f *File) addOtherFollowUps() {
	declared := map[string]bool{}
	for _, p := range f.Phases {
		for _, q := range p.Questions {
			declared[q.Code] = true
		}
	}

	for i := range f.Phases {
		var out []Question
		for _, q := range f.Phases[i].Questions {
			out = append(out, q)
			if q.FollowUp != nil || (q.Type != string(models.QuestionSingleChoice) && q.Type != string(models.QuestionMultiSelect)) {
				continue
			}
			trigger := ""
			for _, o := range otherOptions {
				if slices.Contains(q.Options, o) {
					trigger = o
					break
				}
			}
			code := q.Code + "_other"
			if trigger == "" || declared[code] {
				continue
			}
			declared[code] = true
			out = append(out, Question{
				Code:   code,
				Prompt: fmt.Sprintf("Please specify your %q answer for: %s", trigger, q.Prompt),
				Type:   string(models.QuestionShortText),
				ShowIf: &models.ShowIf{QuestionCode: q.Code, AnswerIn: []string{trigger}},
			})
		}
		f.Phases[i].Questions = out
	}
}

// check enforces cross-field rules the struct tags cannot express
func (f *File) check() error {
	var errs []error
	phases := map[string]bool{}
	seen := map[string]Question{}

	for _, p := range f.Phases {
		if phases[p.Code] {
			errs = append(errs, fmt.Errorf("duplicate phase code %q", p.Code))
		}
		phases[p.Code] = true

		for _, q := range p.Questions {
			if _, dup := seen[q.Code]; dup {
				errs = append(errs, fmt.Errorf("duplicate question code %q", q.Code))
				continue
			}
			seen[q.Code] = q
		}
	}

	for _, p := range f.Phases {
		for _, q := range p.Questions {
			errs = append(errs, checkQuestion(q, seen)...)
		}
	}
	return errors.Join(errs...)
}

func checkQuestion(q Question, all map[string]Question) []error {
	var errs []error
	qt := models.QuestionType(q.Type)

	choice := qt == models.QuestionSingleChoice || qt == models.QuestionMultiSelect
	if choice && len(q.Options) == 0 {
		errs = append(errs, fmt.Errorf("question %q: choice questions need options", q.Code))
	}
	if !choice && len(q.Options) > 0 {
		errs = append(errs, fmt.Errorf("question %q: only choice questions take options", q.Code))
	}
	if q.SelectionMin > 0 || q.SelectionMax > 0 {
		if qt != models.QuestionMultiSelect {
			errs = append(errs, fmt.Errorf("question %q: selection bounds apply to multi_select only", q.Code))
		}
		if q.SelectionMax > 0 && q.SelectionMin > q.SelectionMax {
			errs = append(errs, fmt.Errorf("question %q: selection_min exceeds selection_max", q.Code))
		}
		if q.SelectionMax > len(q.Options) {
			errs = append(errs, fmt.Errorf("question %q: selection_max exceeds the number of options", q.Code))
		}
	}

	if q.ShowIf != nil {
		if _, ok := all[q.ShowIf.QuestionCode]; !ok || q.ShowIf.QuestionCode == q.Code {
			errs = append(errs, fmt.Errorf("question %q: show_if references unknown question %q", q.Code, q.ShowIf.QuestionCode))
		}
		if len(q.ShowIf.AnswerIn) == 0 {
			errs = append(errs, fmt.Errorf("question %q: show_if needs answer_in", q.Code))
		}
	}
	if q.FollowUp != nil {
		if !slices.Contains(q.Options, q.FollowUp.Option) {
			errs = append(errs, fmt.Errorf("question %q: follow_up option %q is not an option", q.Code, q.FollowUp.Option))
		}
		if _, ok := all[q.FollowUp.QuestionCode]; !ok {
			errs = append(errs, fmt.Errorf("question %q: follow_up references unknown question %q", q.Code, q.FollowUp.QuestionCode))
		}
	}
	return errs
}

// Result reports what Seed wrote
type Result struct {
	Phases    int
	Questions int
}

// Seed upserts every phase and question by code. Phases without an explicit
// sort order take their position in the file; questions always do.
func Seed(ctx context.Context, st store.AdminStore, f *File) (Result, error) {
	var res Result
	for i, p := range f.Phases {
		order := p.SortOrder
		if order == 0 {
			order = i + 1
		}
		phase, err := st.UpsertPhase(ctx, models.Phase{
			Code:      strings.TrimSpace(p.Code),
			Name:      p.Name,
			SortOrder: order,
			Active:    enabled(p.Active),
		})
		if err != nil {
			return res, fmt.Errorf("failed to seed phase %s: %w", p.Code, err)
		}
		res.Phases++

		for j, q := range p.Questions {
			_, err := st.UpsertQuestion(ctx, models.Question{
				PhaseID:      phase.ID,
				Code:         strings.TrimSpace(q.Code),
				Prompt:       q.Prompt,
				HelpText:     q.HelpText,
				Type:         models.QuestionType(q.Type),
				Options:      q.Options,
				SelectionMin: q.SelectionMin,
				SelectionMax: q.SelectionMax,
				Required:     q.Required,
				ShowIf:       q.ShowIf,
				FollowUp:     q.FollowUp,
				SortOrder:    j + 1,
				Active:       enabled(q.Active),
			})
			if err != nil {
				return res, fmt.Errorf("failed to seed question %s: %w", q.Code, err)
			}
			res.Questions++
		}
	}
	return res, nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}
