package recipe

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extract recovers a recipe from free-form chat text that may embed a JSON
// object in surrounding prose. The object may use non-JSON conventions
// (bare identifier keys, single-quoted strings, trailing commas); a single
// repair pass is attempted before one strict parse. Returns nil whenever a
// recipe cannot be recovered; it never panics.
//
// The brace scan does not account for braces inside string literals, so a
// step text containing "{" can shift the detected object boundary. This
// matches the behavior recipes were produced against.
func Extract(text string) *Payload {
	candidate, ok := extractObject(text)
	if !ok {
		return nil
	}

	repaired := repairJSON(candidate)

	var obj map[string]any
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil
	}

	return Normalize(obj)
}

// extractObject returns the substring from the first "{" to the brace that
// returns the depth to zero.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

var (
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuotedRe  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// repairJSON rewrites common non-JSON conventions into strict JSON: bare
// identifier keys get quoted, single-quoted strings become double-quoted
// with embedded double quotes escaped, and trailing commas are stripped.
func repairJSON(s string) string {
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = singleQuotedRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[1 : len(match)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	s = trailingCommaRe.ReplaceAllString(s, `$1`)
	return s
}
