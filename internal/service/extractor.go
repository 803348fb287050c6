// Package service implements the conversation analysis core: symptom
// extraction, disease probability scoring, suggestion aggregation, report
// synthesis and the orchestrator that ties them to the delegated
// language-model collaborator with a deterministic local fallback.
package service

import (
	"strings"

	"github.com/health-consult-server/internal/knowledge"
)

// SymptomExtractor scans free text for literal occurrences of known symptom
// keywords and disease names. Matching is case-insensitive substring
// containment rather than word-boundary tokenization: Korean consultation
// text is agglutinative, and mid-word matches are wanted ("두통이" still
// matches "두통").
type SymptomExtractor struct {
	kb *knowledge.Base
}

// Extraction is the outcome of scanning one text blob.
type Extraction struct {
	// Symptoms contains detected symptom keywords in knowledge-base
	// definition order, including symptoms back-filled from directly
	// mentioned diseases.
	Symptoms []string
	// MentionedDiseases contains disease names found verbatim in the text.
	MentionedDiseases []string
}

// NewSymptomExtractor creates an extractor over the given knowledge base.
func NewSymptomExtractor(kb *knowledge.Base) *SymptomExtractor {
	return &SymptomExtractor{kb: kb}
}

// ExtractSymptoms returns the known symptom keywords contained in the text.
// Pure function of the text and knowledge-base snapshot; empty input yields
// an empty result.
func (e *SymptomExtractor) ExtractSymptoms(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, symptom := range e.kb.SymptomKeywords() {
		if strings.Contains(lower, strings.ToLower(symptom)) {
			found = append(found, symptom)
		}
	}
	return found
}

// ExtractMentionedDiseases returns the disease names found verbatim in the
// text, in knowledge-base first-reference order.
func (e *SymptomExtractor) ExtractMentionedDiseases(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, disease := range e.kb.AllDiseases() {
		if strings.Contains(lower, strings.ToLower(disease)) {
			found = append(found, disease)
		}
	}
	return found
}

// Extract scans the text for symptoms and directly mentioned diseases. For
// every mentioned disease its linked symptoms are back-filled into the
// detected set: a disease named without its symptom keywords still
// contributes symptom evidence. This is a deliberate precision boost.
func (e *SymptomExtractor) Extract(text string) Extraction {
	symptomSet := make(map[string]bool)
	for _, s := range e.ExtractSymptoms(text) {
		symptomSet[s] = true
	}

	mentioned := e.ExtractMentionedDiseases(text)
	for _, disease := range mentioned {
		for _, symptom := range e.kb.SymptomsFor(disease) {
			symptomSet[symptom] = true
		}
	}

	// Return symptoms in definition order so repeated extraction over the
	// same text is byte-for-byte identical.
	var symptoms []string
	for _, symptom := range e.kb.SymptomKeywords() {
		if symptomSet[symptom] {
			symptoms = append(symptoms, symptom)
		}
	}

	return Extraction{
		Symptoms:          symptoms,
		MentionedDiseases: mentioned,
	}
}
