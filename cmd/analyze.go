package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-autofill-host/internal/answers"
	"github.com/spigell/interview-autofill-host/internal/extract"
	"github.com/spigell/interview-autofill-host/internal/logger"
	"github.com/spigell/interview-autofill-host/internal/resume"
	"github.com/spigell/interview-autofill-host/internal/secrets"
)

const (
	PromptAccept     = "Accept"
	PromptRegenerate = "Regenerate"
	PromptSkip       = "Skip"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume and draft interview answers",
	Run: func(cmd *cobra.Command, _ []string) {
		runAnalyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "path to the resume document (pdf, docx or plain text)")
	analyzeCmd.Flags().StringP("questions", "q", "", "YAML list of interview questions")
	analyzeCmd.Flags().StringP("out", "o", "out", "output directory")
	analyzeCmd.Flags().StringP("generator", "g", "", "answer generator: template, ollama or gemini")
	analyzeCmd.Flags().StringP("model", "m", "", "model name for the selected generator")
	analyzeCmd.Flags().BoolP("interactive", "i", false, "review each drafted answer before writing")

	analyzeCmd.MarkFlagRequired("resume")
	analyzeCmd.MarkFlagRequired("questions")

	viper.BindPFlag("ai.generator", analyzeCmd.Flags().Lookup("generator"))
	viper.BindPFlag("ai.model", analyzeCmd.Flags().Lookup("model"))
}

func runAnalyze(cmd *cobra.Command) {
	ctx := context.Background()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	resumePath := cmd.Flag("resume").Value.String()
	questionsPath := cmd.Flag("questions").Value.String()
	outDir := cmd.Flag("out").Value.String()

	log.Info("extracting resume text", zap.String("resume", resumePath))

	text, meta, err := extract.File(resumePath)
	if err != nil {
		log.Fatal("extracting resume text", zap.Error(err))
	}

	log.Info("resume text extracted",
		zap.String("method", meta.Method),
		zap.Int("pages", meta.Pages),
		zap.Int("characters", len(text)),
	)

	parsed := resume.Parse(text)
	insights := resume.Analyze(parsed)

	log.Info("resume analyzed",
		zap.Int("skills", len(parsed.Skills)),
		zap.Int("likely_roles", len(insights.LikelyRoles)),
	)

	questions, err := loadQuestions(questionsPath)
	if err != nil {
		log.Fatal("loading questions", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config, log)
	if err != nil {
		log.Fatal("building answer generator", zap.Error(err))
	}

	drafter := answers.NewDrafter(generator, log)

	log.Info("drafting answers", zap.Int("questions", len(questions)))

	draft := drafter.Draft(ctx, questions, text, parsed, insights)

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := reviewAnswers(ctx, drafter, draft, questions, text, parsed, insights); err != nil {
			log.Fatal("reviewing answers", zap.Error(err))
		}
	}

	if err := writeOutputs(outDir, text, meta, parsed, insights, draft); err != nil {
		log.Fatal("writing outputs", zap.Error(err))
	}

	log.Info("analysis complete", zap.String("out", outDir), zap.Int("answers", len(draft.Answers)))
}

// newGenerator selects the answer generator. An empty or "template" name
// means no generator: the drafter keeps its built-in template.
func newGenerator(ctx context.Context, config *Config, log *zap.Logger) (answers.Generator, error) {
	name := strings.TrimSpace(strings.ToLower(viper.GetString("ai.generator")))
	model := strings.TrimSpace(viper.GetString("ai.model"))

	switch name {
	case "", "template":
		return nil, nil
	case "ollama":
		if model == "" && config.AI != nil && config.AI.Ollama != nil {
			model = config.AI.Ollama.Model
		}
		return answers.NewOllama(model, log), nil
	case "gemini":
		gemini := &GeminiConfig{}
		if config.AI != nil && config.AI.Gemini != nil {
			gemini = config.AI.Gemini
		}
		if model == "" {
			model = gemini.Model
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: viper.GetString("ai.gemini.api-key-file"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		return answers.NewGemini(ctx, apiKey, model, gemini.MaxRetries, log)
	default:
		return nil, fmt.Errorf("unsupported generator: %s", name)
	}
}

func loadQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var questions []string
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("questions file must be a YAML list of strings: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s contains no questions", path)
	}

	return questions, nil
}

// reviewAnswers walks the drafted answers one by one. Prompts go to stderr,
// same as logging: stdout stays reserved for the channel in host mode and
// analyze keeps the convention.
func reviewAnswers(ctx context.Context, drafter *answers.Drafter, draft *answers.Draft, questions []string, text string, parsed *resume.Parsed, insights *resume.Insights) error {
	for _, q := range questions {
		for {
			fmt.Fprintf(os.Stderr, "\nQ: %s\n\n%s\n", q, draft.Answers[q])

			prompt := promptui.Select{
				Label: "Keep this answer?",
				Items: []string{PromptAccept, PromptRegenerate, PromptSkip},
			}

			_, action, err := prompt.Run()
			if err != nil {
				return err
			}

			if action == PromptRegenerate {
				draft.Answers[q] = drafter.DraftOne(ctx, q, text, parsed, insights)
				continue
			}
			if action == PromptSkip {
				delete(draft.Answers, q)
			}
			break
		}
	}

	return nil
}

func writeOutputs(outDir, text string, meta extract.Metadata, parsed *resume.Parsed, insights *resume.Insights, draft *answers.Draft) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(outDir, "resume_text.txt"), []byte(text), 0o644); err != nil {
		return err
	}

	files := map[string]any{
		"resume_metadata.json": meta,
		"parsed.json":          parsed,
		"insights.json":        insights,
		"answers.json":         draft.Answers,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return err
		}
	}

	md := []string{"# Clarifying questions for a manual pass", ""}
	for _, q := range draft.Clarifying {
		md = append(md, "- "+q)
	}
	return os.WriteFile(filepath.Join(outDir, "clarifying_questions.md"), []byte(strings.Join(md, "\n")+"\n"), 0o644)
}
