package safety

import (
	"regexp"
	"strings"
)

const (
	secretWords = `token|secret|password|passwd|api[_-]?key|access[_-]?key`
	secretValue = `([^\s"']+|"[^"]*"|'[^']*')`
	placeholder = "<redacted>"
)

type redactionRule struct {
	pattern     *regexp.Regexp
	replacement string
}

func rule(expr, replacement string) redactionRule {
	return redactionRule{pattern: regexp.MustCompile(expr), replacement: replacement}
}

var secretRedactionRules = []redactionRule{
	// Google API keys show up verbatim in SDK errors and request URLs.
	rule(`AIza[0-9A-Za-z_-]{35}`, placeholder),
	rule(`(?i)([?&](?:key|api_key|access_token)=)[^&\s"']+`, `${1}`+placeholder),
	rule(`(?i)\b([a-z0-9_]*(?:`+secretWords+`)[a-z0-9_]*)\s*[=:]\s*`+secretValue, `$1=`+placeholder),
	rule(`(?i)\b(authorization\s*:\s*bearer)\s+([^\s"']+)`, `$1 `+placeholder),
	rule(`(?i)(--[a-z0-9_-]*(?:`+secretWords+`|authorization)[a-z0-9_-]*)\s*=\s*`+secretValue, `$1=`+placeholder),
	rule(`(?i)(--[a-z0-9_-]*(?:`+secretWords+`|authorization)[a-z0-9_-]*)\s+`+secretValue, `$1 `+placeholder),
	rule(`(?i)(^|\s)([a-z0-9_-]*(?:`+secretWords+`)[a-z0-9_-]*)\b\s+`+secretValue, `$1$2 `+placeholder),
}

// RedactText scrubs API keys and secret assignments from free-form text.
func RedactText(input string) string {
	redacted := input
	for _, r := range secretRedactionRules {
		redacted = r.pattern.ReplaceAllString(redacted, r.replacement)
	}
	return redacted
}

// RedactError renders err for display with secrets removed. A nil error yields "".
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(RedactText(err.Error()))
}
