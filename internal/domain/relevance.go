package domain

import "strings"

// RelevanceTier is the classifier's verdict on a headline.
type RelevanceTier string

const (
	TierHigh   RelevanceTier = "high"
	TierMedium RelevanceTier = "medium"
	TierLow    RelevanceTier = "low"
)

// Admitted reports whether the tier triggers parsing, summarizing and storing.
// Only the highest tier is admitted.
func (t RelevanceTier) Admitted() bool {
	return t == TierHigh
}

// ParseRelevanceTier maps a free-form model answer onto the closed vocabulary.
func ParseRelevanceTier(raw string) (RelevanceTier, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, "'\"`.。 \n\t")
	switch RelevanceTier(cleaned) {
	case TierHigh, TierMedium, TierLow:
		return RelevanceTier(cleaned), true
	default:
		return "", false
	}
}
