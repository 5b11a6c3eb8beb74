// internal/dialog/extract.go
package dialog

import "strings"

// freeText pulls the user's raw answer out of a turn while a slot-collection
// flow is waiting for one. This is the single integration point with the
// platform's intent grammar: the dedicated answer intent carries a single
// "respuesta" slot, but misrecognized turns can land on any intent, so the
// fallback takes the first non-empty slot value wherever it appears.
func freeText(turn Turn) string {
	if turn.Intent == IntentAnswer {
		if v := strings.TrimSpace(turn.Slots[slotAnswer]); v != "" {
			return v
		}
	}
	for _, v := range turn.Slots {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// dontKnow reports whether the answer is one of the recognized "no sé"
// utterances, optionally with the field name appended ("no sé el autor").
func dontKnow(answer, field string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch answer {
	case "no sé", "no se", "no lo sé", "no lo se":
		return true
	case "no sé el " + field, "no se el " + field:
		return true
	}
	return false
}

// stripFieldPrefix removes a spoken lead-in like "el autor es gabriel garcía
// márquez" so only the value itself is stored.
func stripFieldPrefix(answer, field string) string {
	lower := strings.ToLower(answer)
	for _, prefix := range []string{"el " + field + " es ", "es "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(answer[len(prefix):])
		}
	}
	return strings.TrimSpace(answer)
}
