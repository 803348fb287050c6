package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/health-consult-server/internal/knowledge"
)

func TestSymptomExtractor_ExtractSymptoms(t *testing.T) {
	extractor := NewSymptomExtractor(knowledge.Default())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "Single symptom",
			text: "두통이 심해요",
			want: []string{"두통"},
		},
		{
			name: "Multiple symptoms",
			text: "열이 나고 기침도 해요",
			want: []string{"열", "기침"},
		},
		{
			name: "Substring match inside a longer word",
			text: "편두통이 있어요",
			want: []string{"두통"},
		},
		{
			name: "No symptoms",
			text: "오늘 날씨가 좋네요",
			want: nil,
		},
		{
			name: "Empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.ExtractSymptoms(tt.text))
		})
	}
}

func TestSymptomExtractor_CaseInsensitive(t *testing.T) {
	kb := knowledge.New(
		[]knowledge.SymptomEntry{
			{Symptom: "Fever", Diseases: []string{"Flu"}},
		},
		nil, nil,
	)
	extractor := NewSymptomExtractor(kb)

	assert.Equal(t, []string{"Fever"}, extractor.ExtractSymptoms("i have a FEVER today"))
	assert.Equal(t, []string{"Flu"}, extractor.ExtractMentionedDiseases("doctor says it's the flu"))
}

func TestSymptomExtractor_ExtractMentionedDiseases(t *testing.T) {
	extractor := NewSymptomExtractor(knowledge.Default())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "Direct mention",
			text: "의사가 감기라고 했어요",
			want: []string{"감기"},
		},
		{
			name: "Mention plus symptom keyword",
			text: "편두통이 있어요",
			want: []string{"편두통"},
		},
		{
			name: "No mention",
			text: "두통이 심해요",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.ExtractMentionedDiseases(tt.text))
		})
	}
}

func TestSymptomExtractor_Extract_BackfillsFromMention(t *testing.T) {
	extractor := NewSymptomExtractor(knowledge.Default())

	// The disease is named without any of its symptom keywords; its
	// linked symptoms are back-filled in keyword definition order.
	extraction := extractor.Extract("의사가 감기라고 했어요")

	assert.Equal(t, []string{"감기"}, extraction.MentionedDiseases)
	assert.Equal(t, []string{"열", "기침", "발열", "콧물"}, extraction.Symptoms)
}

func TestSymptomExtractor_Extract_MergesDetectedAndBackfilled(t *testing.T) {
	extractor := NewSymptomExtractor(knowledge.Default())

	extraction := extractor.Extract("감기에 걸렸는지 두통도 있어요")

	assert.Equal(t, []string{"감기"}, extraction.MentionedDiseases)
	// 두통 detected directly, the rest back-filled; output stays in
	// definition order with no duplicates.
	assert.Equal(t, []string{"두통", "열", "기침", "발열", "콧물"}, extraction.Symptoms)
}

func TestSymptomExtractor_Extract_Deterministic(t *testing.T) {
	extractor := NewSymptomExtractor(knowledge.Default())

	first := extractor.Extract("열이 나고 기침을 하는데 감기 같아요")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, extractor.Extract("열이 나고 기침을 하는데 감기 같아요"))
	}
}
