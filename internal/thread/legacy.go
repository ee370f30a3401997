package thread

import (
	"encoding/json"
	"time"
)

// NormalizeLegacy converts the mixed thread encodings found embedded in
// historical session payloads into canonical Thread values. Each entry is
// handled independently; the mixed union never propagates past this
// boundary.
//
// Four string shapes occur in the wild, plus already-decoded objects:
//
//  1. a Thread-shaped JSON object (decoded map) — passed through
//  2. a string holding JSON with id/text/status — parsed directly
//  3. a string holding JSON with id/status and "note" but no "text" —
//     an old wrapper bug stored the human-readable content under note;
//     note is promoted to text, preserving id/status/resolved_at
//  4. a string holding JSON with "item" (and optionally "context") —
//     item becomes text, a fresh id is generated
//  5. any other string, or JSON that fails to parse — free-form text
//
// Parse failures never propagate; they degrade to shape 5 with the raw
// string as the text. Threads synthesized here get status=open,
// created_at=now, and the source session stamped.
func NormalizeLegacy(entries []any, sourceSession string, now time.Time) []Thread {
	out := make([]Thread, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case map[string]any:
			out = append(out, threadFromFields(v, "", sourceSession, now))
		case string:
			out = append(out, normalizeString(v, sourceSession, now))
		case Thread:
			out = append(out, v)
		}
	}
	return out
}

func normalizeString(raw, sourceSession string, now time.Time) Thread {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return freeform(raw, sourceSession, now)
	}

	if item, ok := stringField(fields, "item"); ok && item != "" {
		// Legacy {item, context} shape: item is the description, the id
		// was never stored.
		t := New(item, "", now)
		t.SourceSession = sourceSession
		return t
	}

	if _, hasText := stringField(fields, "text"); !hasText {
		note, hasNote := stringField(fields, "note")
		_, hasID := stringField(fields, "id")
		_, hasStatus := stringField(fields, "status")
		if hasNote && hasID && hasStatus {
			// Wrapper bug: content lives under "note". Without this
			// promotion the literal JSON string leaks into display text.
			return threadFromFields(fields, note, sourceSession, now)
		}
		return freeform(raw, sourceSession, now)
	}

	return threadFromFields(fields, "", sourceSession, now)
}

// threadFromFields builds a Thread from a decoded JSON object,
// synthesizing anything the encoding left out. textOverride, when
// non-empty, wins over the "text" field (the note→text promotion).
func threadFromFields(fields map[string]any, textOverride, sourceSession string, now time.Time) Thread {
	t := Thread{Status: StatusOpen, Class: DefaultClass}

	if id, ok := stringField(fields, "id"); ok && id != "" {
		t.ID = id
	} else {
		t.ID = NewID()
	}
	if text, ok := stringField(fields, "text"); ok {
		t.Text = text
	}
	if textOverride != "" {
		t.Text = textOverride
	}
	if status, ok := stringField(fields, "status"); ok {
		switch Status(status) {
		case StatusOpen, StatusResolved, StatusArchived:
			t.Status = Status(status)
		}
	}
	if class, ok := stringField(fields, "thread_class"); ok && class != "" {
		t.Class = class
	}
	if project, ok := stringField(fields, "project"); ok {
		t.Project = project
	}
	if note, ok := stringField(fields, "resolution_note"); ok {
		t.ResolutionNote = note
	}
	if sess, ok := stringField(fields, "resolved_by_session"); ok {
		t.ResolvedBySession = sess
	}
	if issue, ok := stringField(fields, "linear_issue"); ok {
		t.LinearIssue = issue
	}

	t.CreatedAt = timeField(fields, "created_at", now)
	t.LastTouchedAt = timeField(fields, "last_touched_at", t.CreatedAt)
	if n, ok := fields["touch_count"].(float64); ok && n >= 1 {
		t.TouchCount = int(n)
	} else {
		t.TouchCount = 1
	}
	if ts, ok := stringField(fields, "resolved_at"); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			t.ResolvedAt = &parsed
		}
	}
	if ts, ok := stringField(fields, "dormant_since"); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			t.DormantSince = &parsed
		}
	}

	if sess, ok := stringField(fields, "source_session"); ok && sess != "" {
		t.SourceSession = sess
	} else if sourceSession != "" {
		t.SourceSession = sourceSession
	}
	return t
}

func freeform(text, sourceSession string, now time.Time) Thread {
	t := New(text, "", now)
	t.SourceSession = sourceSession
	return t
}

func stringField(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func timeField(fields map[string]any, key string, fallback time.Time) time.Time {
	if ts, ok := stringField(fields, key); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			return parsed
		}
	}
	return fallback
}
