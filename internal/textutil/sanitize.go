package textutil

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// NormalizeLabel returns the NFC form of a class name with surrounding
// whitespace removed.
func NormalizeLabel(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// DisplayLabel renders a class name for humans: underscores become spaces and
// words are title-cased.
func DisplayLabel(value string) string {
	spaced := strings.ReplaceAll(NormalizeLabel(value), "_", " ")
	return cases.Title(language.English).String(spaced)
}

// ValidateModelName rejects names that cannot safely become file name stems.
func ValidateModelName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("model name is empty")
	case trimmed != name:
		return fmt.Errorf("model name %q has surrounding whitespace", name)
	case trimmed == "." || trimmed == "..":
		return fmt.Errorf("model name %q is reserved", name)
	case strings.ContainsAny(trimmed, `/\:*?"<>|`):
		return fmt.Errorf("model name %q contains path characters", name)
	case strings.HasPrefix(trimmed, "."):
		return fmt.Errorf("model name %q must not start with a dot", name)
	}
	return nil
}
