package command

import "strings"

// Fallback values used when an AI reply omits a labeled line.
const (
	FallbackCommand     = "not found"
	FallbackDescription = "AI-generated command"
)

type Origin string

const (
	OriginLocal Origin = "local"
	OriginAI    Origin = "ai"
)

// Record is one answer: the query it resolves and the command per OS.
type Record struct {
	Name string `json:"name"`
	Mac  string `json:"mac"`
	Win  string `json:"win"`
	Desc string `json:"desc"`
}

func (r Record) IsZero() bool {
	return r == Record{}
}

// Complete reports whether every field carries text.
func (r Record) Complete() bool {
	return strings.TrimSpace(r.Name) != "" &&
		strings.TrimSpace(r.Mac) != "" &&
		strings.TrimSpace(r.Win) != "" &&
		strings.TrimSpace(r.Desc) != ""
}

func (o Origin) Valid() bool {
	switch o {
	case OriginLocal, OriginAI:
		return true
	default:
		return false
	}
}
