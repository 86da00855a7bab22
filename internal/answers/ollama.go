package answers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/logger"
)

const defaultOllamaModel = "llama3.1:8b"

// runFunc invokes the local model runner and returns its raw output.
type runFunc func(ctx context.Context, model, prompt string) (string, error)

// Ollama generates answer text by piping the prompt to a local
// `ollama run <model>` subprocess.
type Ollama struct {
	model  string
	run    runFunc
	logger *zap.Logger
}

// NewOllama creates an ollama-backed generator.
func NewOllama(model string, log *zap.Logger) *Ollama {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		model:  model,
		run:    runOllama,
		logger: logger.WithFields(log, logger.GeneratorFields("ollama", model)...),
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	output, err := o.run(ctx, o.model, prompt)
	if err != nil {
		return "", fmt.Errorf("running ollama: %w", err)
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return "", errors.New("ollama produced no output")
	}
	return output, nil
}

func runOllama(ctx context.Context, model, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, "ollama", "run", model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
