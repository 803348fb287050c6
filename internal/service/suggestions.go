package service

import (
	"github.com/health-consult-server/internal/knowledge"
)

// Suggestion output bounds: advice stays focused on the top-ranked
// diseases and never exceeds five entries.
const (
	maxSuggestions        = 5
	topDiseasesForAdvice  = 3
	minDelegatedSuggested = 3
)

// SuggestionAggregator collects care suggestions for ranked diseases and
// backfills with generic advice.
type SuggestionAggregator struct {
	kb *knowledge.Base
}

// NewSuggestionAggregator creates an aggregator over the given knowledge base.
func NewSuggestionAggregator(kb *knowledge.Base) *SuggestionAggregator {
	return &SuggestionAggregator{kb: kb}
}

// Collect gathers suggestions from the top three ranked diseases,
// deduplicates across diseases, backfills from the generic pool below five
// entries, and caps the result at five.
func (a *SuggestionAggregator) Collect(rankedDiseases []string) []string {
	seen := make(map[string]bool)
	var collected []string

	top := rankedDiseases
	if len(top) > topDiseasesForAdvice {
		top = top[:topDiseasesForAdvice]
	}

	for _, disease := range top {
		suggestions, ok := a.kb.SuggestionsFor(disease)
		if !ok {
			continue
		}
		for _, s := range suggestions {
			if !seen[s] {
				seen[s] = true
				collected = append(collected, s)
			}
		}
	}

	if len(collected) < maxSuggestions {
		for _, s := range a.kb.GenericSuggestions() {
			if len(collected) >= maxSuggestions {
				break
			}
			if !seen[s] {
				seen[s] = true
				collected = append(collected, s)
			}
		}
	}

	if len(collected) > maxSuggestions {
		collected = collected[:maxSuggestions]
	}
	return collected
}

// Backfill pads delegated suggestions that came back too sparse. Fewer than
// three suggestions gets generic advice appended, deduplicated, capped at
// five. Already-sufficient lists are only deduplicated and capped.
func (a *SuggestionAggregator) Backfill(suggestions []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range suggestions {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if len(out) < minDelegatedSuggested {
		for _, s := range a.kb.GenericSuggestions() {
			if len(out) >= maxSuggestions {
				break
			}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// GenericSuggestions returns the capped generic advice list used for
// conversations with no findings.
func (a *SuggestionAggregator) GenericSuggestions() []string {
	generics := a.kb.GenericSuggestions()
	if len(generics) > maxSuggestions {
		generics = generics[:maxSuggestions]
	}
	return append([]string(nil), generics...)
}
