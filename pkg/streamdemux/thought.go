package streamdemux

import "strings"

// parseThought splits raw thought text on the "**subject** description"
// convention: subject is the first substring wrapped in "**…**", and
// description is the remainder with that wrapper stripped. Both are
// trimmed. Text without the wrapper becomes an empty subject.
func parseThought(raw string) (subject, description string) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "**") {
		return "", trimmed
	}
	rest := trimmed[2:]
	end := strings.Index(rest, "**")
	if end == -1 {
		return "", trimmed
	}
	subject = strings.TrimSpace(rest[:end])
	description = strings.TrimSpace(rest[end+2:])
	return subject, description
}
