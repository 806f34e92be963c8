package convo

// History holds the comprehensive record of a session (every message,
// including ones later found invalid) and derives the curated view a
// model request actually sends. Curation drops an invalid model turn
// together with the user message that provoked it, mirroring
// extract_curated_history from the conversation graph this package is
// grounded on: a malformed function call or a stream error must not
// poison every later request with an unusable turn.
type History struct {
	comprehensive []Message
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds msg to the comprehensive record. A message is merged into
// the immediately preceding entry when it shares the same role and both
// are valid, matching the way a streamed model turn arrives as many
// partial messages that belong together as one logical turn.
func (h *History) Append(msg Message) {
	if n := len(h.comprehensive); n > 0 {
		last := &h.comprehensive[n-1]
		if last.Role == msg.Role && last.Valid && msg.Valid {
			last.Parts = append(last.Parts, msg.Parts...)
			last.Timestamp = msg.Timestamp
			return
		}
	}
	h.comprehensive = append(h.comprehensive, msg)
}

// Invalidate marks the last appended message invalid, used when a model
// turn fails after some content has already streamed in.
func (h *History) Invalidate() {
	if n := len(h.comprehensive); n > 0 {
		h.comprehensive[n-1].Valid = false
	}
}

// InsertEmptyTextIntoLastModel appends an empty TextPart to the last
// comprehensive entry if it is a model-role message, the mutation spec
// §4.6 step 7 performs before the next-speaker shortcut treats a
// speechless model turn as eligible to continue. The message stays
// "empty" by the zero-observable-content definition, so Curated's
// emptiness rule still drops it.
func (h *History) InsertEmptyTextIntoLastModel() {
	if n := len(h.comprehensive); n > 0 && h.comprehensive[n-1].Role == RoleModel {
		h.comprehensive[n-1].Parts = append(h.comprehensive[n-1].Parts, TextPart{Text: ""})
	}
}

// Comprehensive returns every message ever appended, valid or not.
func (h *History) Comprehensive() []Message {
	out := make([]Message, len(h.comprehensive))
	copy(out, h.comprehensive)
	return out
}

// Curated returns the subset of history fit to send back to the model.
// Two rules drop a user turn and its response together: an explicitly
// invalidated entry (Invalidate, for a model turn that failed mid-stream
// after some content already arrived), and a consecutive run of model
// messages following a user message where at least one of those model
// messages is empty — "include the group iff every model message is
// non-empty; otherwise drop the whole group including the user message",
// the rule that keeps the boundary case of an empty model turn (no text,
// no function calls) out of what gets sent back to the model.
func (h *History) Curated() []Message {
	drop := make([]bool, len(h.comprehensive))
	for i, m := range h.comprehensive {
		if !m.Valid {
			drop[i] = true
			if i > 0 && h.comprehensive[i-1].Role == RoleUser {
				drop[i-1] = true
			}
		}
	}

	for i, m := range h.comprehensive {
		if m.Role != RoleUser {
			continue
		}
		j := i + 1
		groupEmpty := false
		for ; j < len(h.comprehensive) && h.comprehensive[j].Role == RoleModel; j++ {
			if h.comprehensive[j].IsEmpty() {
				groupEmpty = true
			}
		}
		if groupEmpty {
			for k := i; k < j; k++ {
				drop[k] = true
			}
		}
	}

	curated := make([]Message, 0, len(h.comprehensive))
	for i, m := range h.comprehensive {
		if !drop[i] {
			curated = append(curated, m)
		}
	}
	return curated
}

// Len reports the number of comprehensive entries.
func (h *History) Len() int {
	return len(h.comprehensive)
}

// Truncate drops every comprehensive entry before index start, used when a
// compression pass replaces an older window with a summary message. The
// caller is responsible for prepending the summary itself via Append.
func (h *History) Truncate(start int) {
	if start <= 0 || start >= len(h.comprehensive) {
		return
	}
	h.comprehensive = append([]Message{}, h.comprehensive[start:]...)
}
