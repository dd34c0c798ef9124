package policy

import (
	"regexp"

	"github.com/nattydev/whatsguard/internal/store"
)

var textMentionPattern = regexp.MustCompile(`@(\d{10,})`)

const (
	antitagMinimumThreshold = 3
	antitagAbsoluteLimit    = 10
)

// EvalAntitag flags mass-mention abuse. Two signals feed the count: the
// structured mention list and distinct numeric "@123..." tokens in the text
// (tag-all tools often skip the structured metadata). The larger of the two
// is compared, inclusively, against max(3, half the participant count);
// numeric mentions alone trip the rule at 10 regardless of group size.
func EvalAntitag(text string, structuredMentions []string, participantCount int, settings store.GroupSettings) Verdict {
	if !settings.Antitag {
		return noMatch
	}

	structured := make(map[string]struct{}, len(structuredMentions))
	for _, m := range structuredMentions {
		if m != "" {
			structured[m] = struct{}{}
		}
	}

	numeric := make(map[string]struct{})
	for _, match := range textMentionPattern.FindAllStringSubmatch(text, -1) {
		numeric[match[1]] = struct{}{}
	}

	total := len(structured)
	if len(numeric) > total {
		total = len(numeric)
	}

	threshold := antitagMinimumThreshold
	if half := (participantCount + 1) / 2; half > threshold {
		threshold = half
	}

	if total < threshold && len(numeric) < antitagAbsoluteLimit {
		return noMatch
	}
	return Verdict{
		Matched: true,
		Kick:    settings.AntitagAction == store.ActionKick,
		Reason:  "mass mention detected",
	}
}
