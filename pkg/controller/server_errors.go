package controller

import (
	"sort"
	"strconv"
	"strings"
)

// ApplyServerErrors records field errors returned by a backend after a failed
// submission. Keys may be field ids, dotted paths or JSON pointers, optionally
// wrapped in envelope segments such as "body" or "data"; each key is matched
// to the registered field with the longest matching id. Messages for keys
// that match no field, or that address the form itself ("", "form",
// "non_field_errors"), are returned de-duplicated in first-seen order.
func (c *Controller) ApplyServerErrors(payload map[string][]string) []string {
	if len(payload) == 0 {
		return nil
	}

	known := make(map[string]struct{})
	for _, id := range c.FieldIDs() {
		known[id] = struct{}{}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fieldMessages := make(map[string][]string)
	var formMessages []string
	for _, key := range keys {
		messages := dedupeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		id := matchServerPath(key, known)
		if id == "" {
			formMessages = append(formMessages, messages...)
			continue
		}
		fieldMessages[id] = append(fieldMessages[id], messages...)
	}

	for id, messages := range fieldMessages {
		if err := c.SetFieldError(id, strings.Join(dedupeMessages(messages), "; ")); err != nil {
			formMessages = append(formMessages, messages...)
		}
	}
	return dedupeMessages(formMessages)
}

func dedupeMessages(messages []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

var envelopeSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"fields":     {},
}

func matchServerPath(raw string, known map[string]struct{}) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return ""
	}
	if _, ok := known[strings.TrimSpace(raw)]; ok {
		return strings.TrimSpace(raw)
	}

	segments := splitServerPath(raw)
	if len(segments) == 0 {
		return ""
	}

	best := ""
	for _, candidate := range pathCandidates(segments) {
		for end := len(candidate); end > 0; end-- {
			id := strings.Join(candidate[:end], ".")
			if _, ok := known[id]; ok {
				if end > strings.Count(best, ".")+1 || best == "" {
					best = id
				}
				break
			}
		}
	}
	return best
}

// splitServerPath turns "#/body/items/0/name", "$.data.owner[1].email" and
// "owner.email" into path segments, decoding JSON pointer escapes.
func splitServerPath(raw string) []string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

func pathCandidates(segments []string) [][]string {
	unwrapped := segments
	for len(unwrapped) > 0 {
		if _, ok := envelopeSegments[strings.ToLower(unwrapped[0])]; !ok {
			break
		}
		unwrapped = unwrapped[1:]
	}
	return [][]string{
		segments,
		unwrapped,
		withoutIndexes(segments),
		withoutIndexes(unwrapped),
	}
}

func withoutIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}
