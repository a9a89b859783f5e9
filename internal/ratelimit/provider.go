// Package ratelimit performs the pre-flight capacity check that decides
// whether a batch runs at all. The check happens exactly once per
// invocation, before any unit is scheduled: starting a hundred agent
// runs against an exhausted API quota burns time and produces a wall of
// error records, while skipping the batch is free because resumption
// makes a later re-invocation pick up exactly where this one left off.
package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// Status is the answer a status provider reports.
//
// Example JSON representation:
//
//	{"limited": true, "retry_after_seconds": 1800, "message": "quota exhausted"}
type Status struct {
	// Limited reports whether the upstream dependency is rate limited
	// right now.
	Limited bool `json:"limited"`

	// RetryAfterSeconds is how long until capacity is expected back,
	// zero if unknown.
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`

	// Message is the provider's human-readable explanation.
	Message string `json:"message,omitempty"`
}

// StatusProvider answers whether the upstream dependency is currently
// rate limited. Implementations make at most one external call per
// Check.
type StatusProvider interface {
	Check(ctx context.Context) (*Status, error)
}

// NoopProvider always reports available capacity. It is the provider of
// record when no status command is configured.
type NoopProvider struct{}

// Check reports not limited.
func (NoopProvider) Check(_ context.Context) (*Status, error) {
	return &Status{}, nil
}

// CommandExecutor abstracts command execution for testing.
// The production implementation uses exec.Cmd to run subprocesses,
// while tests can provide a mock implementation.
type CommandExecutor interface {
	// Execute runs the command and returns stdout, stderr, and any error.
	Execute(ctx context.Context, cmd *exec.Cmd) (stdout, stderr []byte, err error)
}

// DefaultExecutor is the production implementation of CommandExecutor.
type DefaultExecutor struct{}

// Execute runs the command and captures its output.
func (e *DefaultExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandProvider shells out to a configured status command and parses
// its stdout as a Status JSON document. The command is run through the
// shell so config values like "claude-quota --json" work unmodified.
type CommandProvider struct {
	command  string
	timeout  time.Duration
	executor CommandExecutor
	logger   zerolog.Logger
}

// CommandProviderOption is a functional option for configuring CommandProvider.
type CommandProviderOption func(*CommandProvider)

// WithCommandExecutor sets the subprocess executor, usually a mock in tests.
func WithCommandExecutor(executor CommandExecutor) CommandProviderOption {
	return func(p *CommandProvider) {
		p.executor = executor
	}
}

// WithCommandTimeout sets how long the status command may run.
func WithCommandTimeout(timeout time.Duration) CommandProviderOption {
	return func(p *CommandProvider) {
		p.timeout = timeout
	}
}

// WithCommandLogger sets the logger for the CommandProvider.
func WithCommandLogger(logger zerolog.Logger) CommandProviderOption {
	return func(p *CommandProvider) {
		p.logger = logger
	}
}

// NewCommandProvider creates a CommandProvider for the given shell command.
func NewCommandProvider(command string, opts ...CommandProviderOption) (*CommandProvider, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("failed to create rate limit provider: %w", gauntleterrors.ErrCommandNotConfigured)
	}
	p := &CommandProvider{
		command:  command,
		timeout:  constants.DefaultRateLimitTimeout,
		executor: &DefaultExecutor{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Check runs the status command once and parses its report.
func (p *CommandProvider) Check(ctx context.Context) (*Status, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug().
		Str("command", p.command).
		Dur("timeout", p.timeout).
		Msg("checking rate limit status")

	cmd := exec.CommandContext(runCtx, "sh", "-c", p.command)
	stdout, stderr, err := p.executor.Execute(runCtx, cmd)
	if err != nil {
		// Distinguish "command was killed by our deadline" from
		// "command itself failed".
		if runCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: status command after %s", gauntleterrors.ErrCommandTimeout, p.timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: status command: %s", gauntleterrors.ErrCommandFailed, detail)
	}

	var status Status
	if err := json.Unmarshal(stdout, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status command output: %w", err)
	}
	return &status, nil
}

// Ensure both providers implement StatusProvider.
var (
	_ StatusProvider = NoopProvider{}
	_ StatusProvider = (*CommandProvider)(nil)
)
