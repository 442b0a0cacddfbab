package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ashwch/coreshell/internal/config"
)

var placeholderRegex = regexp.MustCompile(`\{([a-z_]+)\}`)

// CommandAdapter shells out to a local model CLI (claude, ollama, llm...).
type CommandAdapter struct {
	name string
	cfg  config.ProviderConfig
}

func NewCommandAdapter(name string, cfg config.ProviderConfig) (Generator, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = name
	}
	return &CommandAdapter{name: name, cfg: cfg}, nil
}

func (a *CommandAdapter) Name() string {
	return a.name
}

func (a *CommandAdapter) Type() string {
	return "command"
}

func (a *CommandAdapter) Generate(ctx context.Context, req Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	invocation, err := a.BuildInvocation(req)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, invocation[0], invocation[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("provider command %s: %w", a.cfg.Command, ctxErr)
		}
		return "", fmt.Errorf("provider command failed (%s): %w; stderr=%s", a.cfg.Command, err, truncate(stderr.String(), 800))
	}

	raw := unwrapResult(stdout.String())
	if raw == "" {
		return "", fmt.Errorf("provider command %s returned no output", a.cfg.Command)
	}
	return raw, nil
}

func (a *CommandAdapter) BuildInvocation(req Request) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(a.cfg.Model)
	}
	values := map[string]string{
		"model":  model,
		"prompt": req.Prompt,
	}

	if len(a.cfg.Args) == 0 {
		args := []string{}
		if model != "" {
			args = append(args, "--model", model)
		}
		return append([]string{a.cfg.Command}, append(args, req.Prompt)...), nil
	}

	args := make([]string, 0, len(a.cfg.Args)+1)
	hasPromptPlaceholder := false
	for _, templateArg := range a.cfg.Args {
		if strings.Contains(templateArg, "{prompt}") {
			hasPromptPlaceholder = true
		}
		rendered, ok := renderTemplateArg(templateArg, values)
		if !ok {
			continue
		}
		args = append(args, rendered)
	}
	if !hasPromptPlaceholder {
		args = append(args, req.Prompt)
	}
	return append([]string{a.cfg.Command}, args...), nil
}

func (a *CommandAdapter) HealthCheck() error {
	if _, err := exec.LookPath(a.cfg.Command); err != nil {
		return fmt.Errorf("command not found in PATH: %s", a.cfg.Command)
	}
	return nil
}

// renderTemplateArg drops an argument whose placeholders have no value, so
// "--model" "{model}" pairs collapse cleanly when no model is set.
func renderTemplateArg(template string, values map[string]string) (string, bool) {
	matches := placeholderRegex.FindAllStringSubmatch(template, -1)
	rendered := template
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		key := match[1]
		value, ok := values[key]
		if !ok || strings.TrimSpace(value) == "" {
			return "", false
		}
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
	}
	rendered = strings.TrimSpace(rendered)
	if rendered == "" {
		return "", false
	}
	return rendered, true
}

// unwrapResult accepts plain text or a JSON envelope such as
// {"type":"result","result":"..."} printed by some agent CLIs.
func unwrapResult(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	var wrapper map[string]any
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
		return trimmed
	}
	for _, key := range []string{"result", "response", "content", "text"} {
		if text, ok := wrapper[key].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return trimmed
}

func truncate(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}
