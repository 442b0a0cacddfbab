package ui

import "strings"

const (
	BackendAuto      = "auto"
	BackendBubbleTea = "bubbletea"
	BackendHuh       = "huh"
	BackendTView     = "tview"
	BackendPlain     = "plain"
)

var interactiveBackends = []string{BackendBubbleTea, BackendHuh, BackendTView}

// NormalizeBackend maps unknown names to auto.
func NormalizeBackend(backend string) string {
	normalized := strings.ToLower(strings.TrimSpace(backend))
	switch normalized {
	case BackendBubbleTea, BackendHuh, BackendTView, BackendPlain:
		return normalized
	default:
		return BackendAuto
	}
}

func IsInteractiveBackend(backend string) bool {
	return NormalizeBackend(backend) != BackendPlain
}

// backendCandidates puts the requested backend first and keeps the others as
// fallbacks in their usual order.
func backendCandidates(backend string) []string {
	preferred := NormalizeBackend(backend)
	switch preferred {
	case BackendPlain:
		return []string{BackendPlain}
	case BackendAuto:
		return append([]string(nil), interactiveBackends...)
	}
	out := []string{preferred}
	for _, candidate := range interactiveBackends {
		if candidate != preferred {
			out = append(out, candidate)
		}
	}
	return out
}
