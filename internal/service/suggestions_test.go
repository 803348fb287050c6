package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/health-consult-server/internal/knowledge"
)

func TestSuggestionAggregator_Collect(t *testing.T) {
	aggregator := NewSuggestionAggregator(knowledge.Default())

	tests := []struct {
		name   string
		ranked []string
		want   []string
	}{
		{
			name:   "Single disease backfilled with generics",
			ranked: []string{"감기"},
			want: []string{
				"충분한 휴식", "수분 섭취", "비타민 C 섭취",
				"충분한 휴식과 수면을 취하세요", "물을 충분히 마시세요",
			},
		},
		{
			name:   "Two diseases cap at five",
			ranked: []string{"편두통", "긴장성 두통"},
			want: []string{
				"충분한 수면 취하기", "스트레스 관리하기", "정기적인 운동하기",
				"목과 어깨 스트레칭", "스트레스 관리",
			},
		},
		{
			name:   "Disease without suggestions falls back to generics",
			ranked: []string{"폐렴"},
			want: []string{
				"충분한 휴식과 수면을 취하세요", "물을 충분히 마시세요",
				"균형 잡힌 식단을 유지하세요", "규칙적인 운동을 하세요",
				"스트레스를 관리하세요",
			},
		},
		{
			name:   "No diseases yields pure generics",
			ranked: nil,
			want: []string{
				"충분한 휴식과 수면을 취하세요", "물을 충분히 마시세요",
				"균형 잡힌 식단을 유지하세요", "규칙적인 운동을 하세요",
				"스트레스를 관리하세요",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aggregator.Collect(tt.ranked)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 5)
		})
	}
}

func TestSuggestionAggregator_Collect_OnlyTopThreeContribute(t *testing.T) {
	aggregator := NewSuggestionAggregator(knowledge.Default())

	// The fourth ranked disease must not contribute even though the top
	// three are saturated.
	got := aggregator.Collect([]string{"편두통", "긴장성 두통", "위염", "감기"})
	assert.NotContains(t, got, "충분한 휴식")
	assert.Len(t, got, 5)
}

func TestSuggestionAggregator_Collect_Dedupes(t *testing.T) {
	aggregator := NewSuggestionAggregator(knowledge.Default())

	got := aggregator.Collect([]string{"감기", "감기"})
	seen := make(map[string]bool)
	for _, s := range got {
		assert.False(t, seen[s], "suggestion %q repeated", s)
		seen[s] = true
	}
}

func TestSuggestionAggregator_Backfill(t *testing.T) {
	aggregator := NewSuggestionAggregator(knowledge.Default())

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "Sufficient input passes through",
			input: []string{"a", "b", "c"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "Sparse input padded with generics",
			input: []string{"a"},
			want: []string{
				"a",
				"충분한 휴식과 수면을 취하세요", "물을 충분히 마시세요",
				"균형 잡힌 식단을 유지하세요", "규칙적인 운동을 하세요",
			},
		},
		{
			name:  "Empty input becomes generics",
			input: nil,
			want: []string{
				"충분한 휴식과 수면을 취하세요", "물을 충분히 마시세요",
				"균형 잡힌 식단을 유지하세요", "규칙적인 운동을 하세요",
				"스트레스를 관리하세요",
			},
		},
		{
			name:  "Oversized input capped at five",
			input: []string{"a", "b", "c", "d", "e", "f"},
			want:  []string{"a", "b", "c", "d", "e"},
		},
		{
			name:  "Duplicates and blanks removed",
			input: []string{"a", "a", "", "b", "c"},
			want:  []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregator.Backfill(tt.input))
		})
	}
}

func TestSuggestionAggregator_GenericSuggestions_Copies(t *testing.T) {
	aggregator := NewSuggestionAggregator(knowledge.Default())

	got := aggregator.GenericSuggestions()
	got[0] = "mutated"

	assert.Equal(t, "충분한 휴식과 수면을 취하세요", aggregator.GenericSuggestions()[0])
}
