package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashwch/coreshell/internal/command"
	"github.com/ashwch/coreshell/internal/knowledge"
	"github.com/google/go-cmp/cmp"
)

type spyGenerator struct {
	reply   string
	err     error
	delay   time.Duration
	calls   int
	prompts []string
}

func (s *spyGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func builtinBase(t *testing.T) *knowledge.Base {
	t.Helper()
	base, err := knowledge.Builtin()
	if err != nil {
		t.Fatalf("Builtin failed: %v", err)
	}
	return base
}

func TestResolveLocalHitNeverCallsAI(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: nope"}
	r := New(builtinBase(t), spy)

	got := r.Resolve(context.Background(), "ip")
	if got.Status != StatusFound || got.Origin != command.OriginLocal {
		t.Fatalf("expected local hit, got %+v", got)
	}
	if got.Record.Name != "mi ip" || got.Record.Mac != "ifconfig | grep inet" || got.Record.Win != "ipconfig" {
		t.Fatalf("unexpected record %+v", got.Record)
	}
	if spy.calls != 0 {
		t.Fatalf("expected AI not to be consulted, got %d calls", spy.calls)
	}
}

func TestResolveAIFallback(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: kubectl apply -f pod.yaml\nWIN: kubectl apply -f pod.yaml\nDESC: Deploys a pod\nWARN: NO"}
	r := New(builtinBase(t), spy)

	got := r.Resolve(context.Background(), "deploy kubernetes pod")
	want := Outcome{
		Record: command.Record{
			Name: "deploy kubernetes pod",
			Mac:  "kubectl apply -f pod.yaml",
			Win:  "kubectl apply -f pod.yaml",
			Desc: "Deploys a pod",
		},
		Origin: command.OriginAI,
		Status: StatusFound,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
	}
	if spy.calls != 1 || !strings.Contains(spy.prompts[0], "'deploy kubernetes pod'") {
		t.Fatalf("expected one prompt embedding the query, got %v", spy.prompts)
	}
}

func TestResolveAIRecordKeepsRawQueryAsName(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: docker ps"}
	got := New(builtinBase(t), spy).Resolve(context.Background(), "Show Docker Containers")
	if got.Record.Name != "Show Docker Containers" {
		t.Fatalf("expected raw query as name, got %q", got.Record.Name)
	}
	if got.Record.Win != command.FallbackCommand {
		t.Fatalf("expected fallback for missing WIN, got %q", got.Record.Win)
	}
	if !got.Record.Complete() {
		t.Fatalf("expected every field populated, got %+v", got.Record)
	}
}

func TestResolveWithoutAIReportsUnavailable(t *testing.T) {
	r := New(builtinBase(t), nil)
	got := r.Resolve(context.Background(), "deploy kubernetes pod")
	if got.Status != StatusAIUnavailable {
		t.Fatalf("expected ai_unavailable, got %+v", got)
	}
	if !got.Record.IsZero() || got.Message == "" {
		t.Fatalf("expected no record and a guidance message, got %+v", got)
	}
	if r.AIEnabled() {
		t.Fatalf("expected AI tier disabled")
	}
}

func TestResolveAIErrorIsCaughtAndRedacted(t *testing.T) {
	spy := &spyGenerator{err: errors.New("googleapi: Error 403: api_key=AIzaSecretValue rejected")}
	got := New(builtinBase(t), spy).Resolve(context.Background(), "deploy kubernetes pod")

	if got.Status != StatusAIFailed || !got.Record.IsZero() {
		t.Fatalf("expected ai_failed without record, got %+v", got)
	}
	if strings.Contains(got.Message, "AIzaSecretValue") {
		t.Fatalf("expected secret to be redacted, got %q", got.Message)
	}
	if !strings.Contains(got.Message, "403") {
		t.Fatalf("expected error detail to be kept, got %q", got.Message)
	}
}

func TestResolveTimeoutIsAIFailure(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: late", delay: 2 * time.Second}
	r := New(builtinBase(t), spy, WithTimeout(30*time.Millisecond))

	start := time.Now()
	got := r.Resolve(context.Background(), "deploy kubernetes pod")
	if got.Status != StatusAIFailed {
		t.Fatalf("expected timeout to be an AI failure, got %+v", got)
	}
	if !strings.Contains(got.Message, "no answer within") {
		t.Fatalf("expected timeout message, got %q", got.Message)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("expected resolve to return at the deadline")
	}
}

func TestResolveBlankQueryConsultsNothing(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: x"}
	got := New(builtinBase(t), spy).Resolve(context.Background(), "   ")
	if got.Status != StatusEmpty || spy.calls != 0 || !got.Record.IsZero() {
		t.Fatalf("expected empty status with no AI call, got %+v calls=%d", got, spy.calls)
	}
}

func TestResolveRespectsCallerCancellation(t *testing.T) {
	spy := &spyGenerator{reply: "MAC: x", delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := New(builtinBase(t), spy).Resolve(ctx, "deploy kubernetes pod")
	if got.Status != StatusAIFailed {
		t.Fatalf("expected cancelled resolve to fail, got %+v", got)
	}
}

func TestWithNilLoggerFallsBackToNop(t *testing.T) {
	spy := &spyGenerator{err: errors.New("down")}
	got := New(builtinBase(t), spy, WithLogger(nil)).Resolve(context.Background(), "deploy kubernetes pod")
	if got.Status != StatusAIFailed {
		t.Fatalf("expected ai_failed with a nil logger, got %+v", got)
	}
}
