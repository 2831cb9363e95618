// Package agent runs the LLM fetcher as a CLI subprocess. It is the
// production implementation of the fetch.Runner boundary: the prompt
// goes to the tool on stdin, the response comes back on stdout, and
// context cancellation kills the process.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Config selects the agent binary and its fixed arguments.
type Config struct {
	// Command is the agent binary, resolved via PATH.
	Command string `yaml:"command"`
	// Args are prepended to every invocation (model selection etc.).
	Args []string `yaml:"args"`
	// AllowedTools restricts the agent's tool surface per method.
	DirectTools []string `yaml:"directTools"`
	SearchTools []string `yaml:"searchTools"`
}

func (c *Config) applyDefaults() {
	if c.Command == "" {
		c.Command = "agent"
	}
	if len(c.DirectTools) == 0 {
		c.DirectTools = []string{"web_fetch"}
	}
	if len(c.SearchTools) == 0 {
		c.SearchTools = []string{"web_search", "web_fetch"}
	}
}

// CLIRunner satisfies fetch.Runner by shelling out to the agent tool.
type CLIRunner struct {
	cfg    Config
	logger *slog.Logger
}

// NewCLIRunner resolves the agent binary and returns a runner. A
// missing binary is reported up front rather than on the first fetch.
func NewCLIRunner(cfg Config, logger *slog.Logger) (*CLIRunner, error) {
	cfg.applyDefaults()
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("agent: %s not found in PATH: %w", cfg.Command, err)
	}
	cfg.Command = path
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIRunner{cfg: cfg, logger: logger}, nil
}

// ExecuteDirect asks the agent to fetch one URL.
func (r *CLIRunner) ExecuteDirect(ctx context.Context, url, prompt string) (string, error) {
	full := prompt + "\n\nTarget URL: " + url
	return r.run(ctx, full, r.cfg.DirectTools)
}

// ExecuteSearch asks the agent to run a web search.
func (r *CLIRunner) ExecuteSearch(ctx context.Context, query, prompt string) (string, error) {
	full := prompt + "\n\nSearch query: " + query
	return r.run(ctx, full, r.cfg.SearchTools)
}

func (r *CLIRunner) run(ctx context.Context, prompt string, tools []string) (string, error) {
	args := append([]string{}, r.cfg.Args...)
	if len(tools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(tools, ","))
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("agent: invoking", "command", r.cfg.Command, "args", args)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Surface the deadline/cancellation instead of the kill signal.
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("agent: %s", firstLine(msg))
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
