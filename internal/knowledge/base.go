// Package knowledge holds the static symptom/disease reference data the
// rule-based analysis is built on. The base is constructed once at startup
// and never mutated afterwards; every component that needs it receives the
// same shared instance.
package knowledge

// SymptomEntry links one symptom keyword to its candidate diseases. The
// order of entries, and of diseases within an entry, is significant: it is
// the tie-break order used when two diseases score the same probability.
type SymptomEntry struct {
	Symptom  string
	Diseases []string
}

// Base is the immutable symptom/disease knowledge base.
type Base struct {
	symptomOrder      []string
	symptomToDiseases map[string][]string

	// diseaseToSymptoms is derived from symptomToDiseases at construction
	// and never edited independently.
	diseaseToSymptoms map[string][]string
	diseaseOrder      []string
	diseaseRank       map[string]int

	diseaseToSuggestions map[string][]string
	genericSuggestions   []string
}

// New builds a knowledge base from the given entries. The reverse
// disease-to-symptoms index is derived here; callers never supply it.
func New(entries []SymptomEntry, suggestions map[string][]string, generics []string) *Base {
	b := &Base{
		symptomToDiseases:    make(map[string][]string, len(entries)),
		diseaseToSymptoms:    make(map[string][]string),
		diseaseRank:          make(map[string]int),
		diseaseToSuggestions: make(map[string][]string, len(suggestions)),
		genericSuggestions:   append([]string(nil), generics...),
	}

	for _, e := range entries {
		b.symptomOrder = append(b.symptomOrder, e.Symptom)
		b.symptomToDiseases[e.Symptom] = append([]string(nil), e.Diseases...)

		for _, disease := range e.Diseases {
			if _, seen := b.diseaseRank[disease]; !seen {
				b.diseaseRank[disease] = len(b.diseaseOrder)
				b.diseaseOrder = append(b.diseaseOrder, disease)
			}
			b.diseaseToSymptoms[disease] = append(b.diseaseToSymptoms[disease], e.Symptom)
		}
	}

	for disease, s := range suggestions {
		b.diseaseToSuggestions[disease] = append([]string(nil), s...)
	}

	return b
}

// Default returns the built-in knowledge base. The data mirrors common
// complaints seen in Korean-language consultations; a production deployment
// would source this from a curated medical dataset instead.
func Default() *Base {
	return New(defaultEntries, defaultSuggestions, defaultGenerics)
}

// SymptomKeywords returns every known symptom keyword in definition order.
func (b *Base) SymptomKeywords() []string {
	return b.symptomOrder
}

// DiseasesFor returns the candidate diseases for a symptom keyword, in
// priority order. The result is nil for unknown symptoms.
func (b *Base) DiseasesFor(symptom string) []string {
	return b.symptomToDiseases[symptom]
}

// SymptomsFor returns the distinct symptoms linked to a disease. Nil for
// diseases the base does not know.
func (b *Base) SymptomsFor(disease string) []string {
	return b.diseaseToSymptoms[disease]
}

// SymptomCount returns how many distinct symptoms are linked to a disease.
func (b *Base) SymptomCount(disease string) int {
	return len(b.diseaseToSymptoms[disease])
}

// AllDiseases returns every disease named anywhere in the base, in
// first-reference order.
func (b *Base) AllDiseases() []string {
	return b.diseaseOrder
}

// DiseaseRank returns the first-reference index of a disease, used as the
// deterministic tie-break when probabilities are equal. Unknown diseases
// rank after every known one.
func (b *Base) DiseaseRank(disease string) int {
	if rank, ok := b.diseaseRank[disease]; ok {
		return rank
	}
	return len(b.diseaseOrder)
}

// SuggestionsFor returns the care suggestions for a disease, if any.
func (b *Base) SuggestionsFor(disease string) ([]string, bool) {
	s, ok := b.diseaseToSuggestions[disease]
	return s, ok
}

// GenericSuggestions returns the fallback care suggestions used whenever
// disease-specific advice is insufficient.
func (b *Base) GenericSuggestions() []string {
	return b.genericSuggestions
}
