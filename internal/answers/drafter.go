// Package answers drafts interview answers from a parsed resume. Text
// generation is pluggable: a Gemini-backed generator, a local ollama
// subprocess, or no generator at all. Every failure falls back to a
// static template so the pipeline always produces an answer.
package answers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/logger"
	"github.com/spigell/interview-autofill-host/internal/resume"
)

//go:embed prompt.md
var promptTemplate string

const (
	maxResumeChars = 8000
	maxParsedChars = 6000
)

// Generator produces free text for one prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Draft holds the answers and the clarifying questions collected for one run.
type Draft struct {
	Answers    map[string]string `json:"answers"`
	Clarifying []string          `json:"clarifying_questions"`
}

// Drafter runs the configured generator per question. A nil generator means
// template-only drafting.
type Drafter struct {
	generator Generator
	logger    *zap.Logger
}

// NewDrafter creates a drafter around the given generator, which may be nil.
func NewDrafter(generator Generator, log *zap.Logger) *Drafter {
	if generator != nil {
		log = logger.WithFields(log, zap.String("generator", generator.Name()))
	}
	return &Drafter{generator: generator, logger: log}
}

// Draft answers every question and pairs each with a clarifying question for
// a later manual pass.
func (d *Drafter) Draft(ctx context.Context, questions []string, resumeText string, parsed *resume.Parsed, insights *resume.Insights) *Draft {
	draft := &Draft{Answers: make(map[string]string, len(questions))}
	for _, q := range questions {
		draft.Answers[q] = d.DraftOne(ctx, q, resumeText, parsed, insights)
		draft.Clarifying = append(draft.Clarifying, clarifyingQuestion(q))
	}
	return draft
}

// DraftOne answers a single question, falling back to the template when the
// generator fails or returns nothing.
func (d *Drafter) DraftOne(ctx context.Context, question, resumeText string, parsed *resume.Parsed, insights *resume.Insights) string {
	if d.generator == nil {
		return templateAnswer(insights)
	}

	prompt := buildPrompt(question, resumeText, parsed, insights)

	d.logger.Debug("generating answer",
		zap.String("question", question),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, 200)),
	)

	answer, err := d.generator.Generate(ctx, prompt)
	if err != nil {
		d.logger.Warn("falling back to template answer",
			zap.String("question", question),
			zap.Error(err),
		)
		return templateAnswer(insights)
	}
	if strings.TrimSpace(answer) == "" {
		d.logger.Warn("generator produced no text, falling back to template answer",
			zap.String("question", question),
		)
		return templateAnswer(insights)
	}

	return strings.TrimSpace(answer)
}

func buildPrompt(question, resumeText string, parsed *resume.Parsed, insights *resume.Insights) string {
	// Failed marshals degrade to empty JSON rather than aborting the draft.
	parsedJSON, _ := json.Marshal(parsed)
	insightsJSON, _ := json.Marshal(insights)

	prompt := strings.ReplaceAll(promptTemplate, "{{QUESTION}}", question)
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", capRunes(resumeText, maxResumeChars))
	prompt = strings.ReplaceAll(prompt, "{{PARSED_JSON}}", capRunes(string(parsedJSON), maxParsedChars))
	return strings.ReplaceAll(prompt, "{{INSIGHTS_JSON}}", string(insightsJSON))
}

func templateAnswer(insights *resume.Insights) string {
	roles := "the target role"
	if insights != nil && len(insights.LikelyRoles) > 0 {
		parts := make([]string, 0, len(insights.LikelyRoles))
		for _, r := range insights.LikelyRoles {
			parts = append(parts, fmt.Sprintf("%s (%d)", r.Role, r.Score))
		}
		roles = strings.Join(parts, ", ")
	}

	return "[Template answer]\n" +
		fmt.Sprintf("- Restate fit for the role based on %s.\n", roles) +
		"- Use STAR: situation, task, actions, results with metrics.\n" +
		"- Tie to company goals and values.\n"
}

func clarifyingQuestion(question string) string {
	return fmt.Sprintf("For question %q, what specific project, metric, or outcome best showcases impact?", question)
}

func capRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
