package service

import (
	"math"
	"sort"

	"github.com/health-consult-server/internal/knowledge"
)

// Probability bounds for the match-count heuristic.
const (
	maxProbability          = 95.0
	minInferredProbability  = 50.0
	directMentionBase       = 80.0
	directMentionBoost      = 3
	directMentionStepfactor = 5.0
)

// ScoredDisease is one candidate disease with its computed probability.
type ScoredDisease struct {
	Name        string
	Probability float64
	// DirectlyMentioned marks diseases named verbatim in the text, which
	// score on the higher-confidence branch.
	DirectlyMentioned bool
}

// DiseaseScorer computes bounded match-count probabilities for candidate
// diseases given detected symptoms and directly mentioned disease names.
type DiseaseScorer struct {
	kb *knowledge.Base
}

// NewDiseaseScorer creates a scorer over the given knowledge base.
func NewDiseaseScorer(kb *knowledge.Base) *DiseaseScorer {
	return &DiseaseScorer{kb: kb}
}

// Score ranks candidate diseases by probability. Each detected symptom adds
// one match count to each of its candidate diseases; a direct mention adds
// three. Directly mentioned diseases score 80% plus 5% per symptom match
// beyond the mention boost; inferred diseases score by the share of their
// known symptoms that matched, clamped to [50,95]. Probabilities are
// rounded to one decimal.
//
// Equal probabilities are ordered by knowledge-base first-reference rank,
// then by name for diseases the base does not know. This replaces the
// arbitrary set-iteration order the heuristic historically had, so repeated
// scoring of the same input is always identical.
func (s *DiseaseScorer) Score(detectedSymptoms, mentionedDiseases []string) []ScoredDisease {
	matchCounts := make(map[string]int)
	var candidateOrder []string

	addCandidate := func(disease string) {
		if _, seen := matchCounts[disease]; !seen {
			candidateOrder = append(candidateOrder, disease)
			matchCounts[disease] = 0
		}
	}

	for _, symptom := range detectedSymptoms {
		for _, disease := range s.kb.DiseasesFor(symptom) {
			addCandidate(disease)
			matchCounts[disease]++
		}
	}

	mentioned := make(map[string]bool, len(mentionedDiseases))
	for _, disease := range mentionedDiseases {
		mentioned[disease] = true
		addCandidate(disease)
		matchCounts[disease] += directMentionBoost
	}

	if len(candidateOrder) == 0 {
		return nil
	}

	scored := make([]ScoredDisease, 0, len(candidateOrder))
	for _, disease := range candidateOrder {
		scored = append(scored, ScoredDisease{
			Name:              disease,
			Probability:       s.probability(disease, matchCounts[disease], mentioned[disease]),
			DirectlyMentioned: mentioned[disease],
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Probability != scored[j].Probability {
			return scored[i].Probability > scored[j].Probability
		}
		ri, rj := s.kb.DiseaseRank(scored[i].Name), s.kb.DiseaseRank(scored[j].Name)
		if ri != rj {
			return ri < rj
		}
		return scored[i].Name < scored[j].Name
	})

	return scored
}

// probability computes the bounded probability for one candidate.
func (s *DiseaseScorer) probability(disease string, matchCount int, directlyMentioned bool) float64 {
	var p float64

	if directlyMentioned {
		p = directMentionBase + float64(matchCount-directMentionBoost)*directMentionStepfactor
		p = math.Min(maxProbability, p)
	} else {
		total := s.kb.SymptomCount(disease)
		if total > 0 {
			p = float64(matchCount) / float64(total) * 100
			p = math.Min(maxProbability, math.Max(minInferredProbability, p))
		} else {
			p = minInferredProbability
		}
	}

	return math.Round(p*10) / 10
}
