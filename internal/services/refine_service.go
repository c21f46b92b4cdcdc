package services

import "strings"

// RefinedDraft is the result of the draft refinement stub.
type RefinedDraft struct {
	RefinedContext string `json:"refined_context"`
	RefinedOffer   string `json:"refined_offer"`
	Message        string `json:"message"`
}

// RefineDraft is a placeholder for AI-assisted draft polish. It tidies the
// text deterministically; no model is called. Callers flag the resulting
// request as ai_assisted for provenance only.
func RefineDraft(context, offer string) RefinedDraft {
	return RefinedDraft{
		RefinedContext: ensureSentence(context),
		RefinedOffer:   ensureSentence(offer),
		Message:        "Draft refined by Relay AI",
	}
}

func ensureSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}
