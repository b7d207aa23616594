// Package checker runs the external MiniZinc checker and decodes its diagnostics.
package checker

import (
	"bufio"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/uber/mzn-playground/src/playground/entity"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/executor"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey    = "checker"
	_commandKey = "checker.command"

	// DefaultCommand checks a model read from stdin and reports problems as a JSON stream.
	DefaultCommand = "minizinc --model-check-only --json-stream --input-from-stdin"

	_maxLineBytes = 1024 * 1024
)

// Module provides the checker gateway.
var Module = fx.Provide(New)

//go:generate mockgen -source=checker.go -destination=checkermock/checker_mock.go -package=checkermock

// Gateway checks model text and returns the diagnostics reported for it.
type Gateway interface {
	// Check runs the checker on text. Diagnostics are returned even when the checker exits
	// with a non-zero code, since that is how it reports errors in the model.
	Check(ctx context.Context, text string) ([]entity.Diagnostic, error)
}

// Params are inbound parameters to initialize the gateway.
type Params struct {
	fx.In

	Config   config.Provider
	Executor executor.Executor
	Logger   *zap.SugaredLogger
}

type gateway struct {
	command  []string
	executor executor.Executor
	logger   *zap.SugaredLogger
}

// New creates a checker Gateway running the configured command.
func New(p Params) Gateway {
	var command string
	if err := p.Config.Get(_commandKey).Populate(&command); err != nil || strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}

	return &gateway{
		command:  strings.Fields(command),
		executor: p.Executor,
		logger:   p.Logger.With("plugin", _nameKey),
	}
}

func (g *gateway) Check(ctx context.Context, text string) ([]entity.Diagnostic, error) {
	cmd := exec.CommandContext(ctx, g.command[0], g.command[1:]...)
	cmd.Stdin = strings.NewReader(text)

	stdout, stderr, exitCode, err := g.executor.Run(cmd)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	diagnostics := g.parse(stdout)
	if err != nil && len(diagnostics) == 0 {
		if stderr == "" {
			stderr = err.Error()
		}
		return nil, &perrors.CheckerError{
			Command:  g.command,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr),
		}
	}

	return diagnostics, nil
}

// parse decodes one JSON object per line, keeping errors and warnings.
func (g *gateway) parse(stdout string) []entity.Diagnostic {
	var diagnostics []entity.Diagnostic

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), _maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var d entity.Diagnostic
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			g.logger.Warnw("skipping malformed checker output", "line", line, zap.Error(err))
			continue
		}
		if d.Severity != entity.SeverityError && d.Severity != entity.SeverityWarning {
			continue
		}
		diagnostics = append(diagnostics, d)
	}
	if err := scanner.Err(); err != nil {
		g.logger.Warnw("reading checker output", zap.Error(err))
	}

	return diagnostics
}
