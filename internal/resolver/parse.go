package resolver

import (
	"fmt"
	"strings"

	"github.com/ashwch/coreshell/internal/command"
)

const (
	labelMac  = "MAC:"
	labelWin  = "WIN:"
	labelDesc = "DESC:"
	labelWarn = "WARN:"
)

// Response is the parsed AI reply. Warn is kept for callers that want to flag
// risky commands; Resolve does not act on it.
type Response struct {
	Mac  string
	Win  string
	Desc string
	Warn string
}

// BuildPrompt embeds the raw query in the instruction sent to the model.
func BuildPrompt(query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Act as a DevOps expert. The user wants: '%s'.\n", query)
	b.WriteString("Reply ONLY with these four lines in exactly this format:\n")
	b.WriteString(labelMac + " [zsh command for macOS/Linux]\n")
	b.WriteString(labelWin + " [PowerShell command for Windows]\n")
	b.WriteString(labelDesc + " [very short explanation, in the user's language]\n")
	b.WriteString(labelWarn + " [YES if the command is dangerous, NO otherwise]\n")
	return b.String()
}

// ParseResponse never fails: a label that is missing or empty gets its
// fallback, so a partial reply still yields a usable record.
func ParseResponse(text string) Response {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return Response{
		Mac:  fieldOr(lines, labelMac, command.FallbackCommand),
		Win:  fieldOr(lines, labelWin, command.FallbackCommand),
		Desc: fieldOr(lines, labelDesc, command.FallbackDescription),
		Warn: fieldOr(lines, labelWarn, ""),
	}
}

// Record names the result after the raw query.
func (r Response) Record(query string) command.Record {
	return command.Record{
		Name: query,
		Mac:  r.Mac,
		Win:  r.Win,
		Desc: r.Desc,
	}
}

func fieldOr(lines []string, label, fallback string) string {
	for _, line := range lines {
		idx := strings.Index(line, label)
		if idx < 0 {
			continue
		}
		value := line[idx+len(label):]
		// a second marker on the same line ends the value
		if next := strings.Index(value, label); next >= 0 {
			value = value[:next]
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return fallback
		}
		return value
	}
	return fallback
}
