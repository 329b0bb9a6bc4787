package ai

import "strings"

var secretPrefixes = []string{
	"AIza",    // Google API keys
	"sk-",     // OpenAI, OpenRouter, Anthropic (sk-ant-)
	"sk_",
	"xai-",
	"gsk_",
	"hf_",
	"ghp_",
	"github_pat_",
	"AKIA",
	"Bearer ",
}

const (
	maxIdentifierLen = 128
	opaqueRunLen     = 24
)

// LooksLikeSecret reports whether s is shaped like a credential rather than a
// model identifier. Callers must reject such values before any lookup.
func LooksLikeSecret(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, p := range secretPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	if len(s) > maxIdentifierLen {
		return true
	}
	return hasOpaqueRun(s)
}

// hasOpaqueRun reports whether s holds an unbroken alphanumeric run of at
// least opaqueRunLen characters mixing upper case, lower case and digits.
// Separators split runs, so hyphenated model names never qualify.
func hasOpaqueRun(s string) bool {
	var n int
	var upper, lower, digit bool
	for _, r := range s + "-" {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			if n >= opaqueRunLen && upper && lower && digit {
				return true
			}
			n, upper, lower, digit = 0, false, false, false
			continue
		}
		n++
	}
	return false
}
