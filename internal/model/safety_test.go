package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrictSafetyPolicy(t *testing.T) {
	p := StrictSafetyPolicy()
	for _, c := range HarmCategories {
		require.Equal(t, ThresholdBlockLowAndAbove, p.Threshold(c))
	}
}

func TestRelaxCopies(t *testing.T) {
	strict := StrictSafetyPolicy()
	relaxed := strict.Relax(HarmDangerousContent)

	require.Equal(t, ThresholdBlockNone, relaxed.Threshold(HarmDangerousContent))
	require.Equal(t, ThresholdBlockLowAndAbove, relaxed.Threshold(HarmHateSpeech))
	require.Equal(t, ThresholdBlockLowAndAbove, strict.Threshold(HarmDangerousContent))
}

func TestThresholdDefaultsToStrict(t *testing.T) {
	var p SafetyPolicy
	require.Equal(t, ThresholdBlockLowAndAbove, p.Threshold(HarmHarassment))
}

func TestCategoriesStableOrder(t *testing.T) {
	p := SafetyPolicy{"zeta": ThresholdBlockNone, "alpha": ThresholdBlockNone}
	got := p.Categories()
	require.Equal(t, HarmCategories, got[:len(HarmCategories)])
	require.Equal(t, []HarmCategory{"alpha", "zeta"}, got[len(HarmCategories):])
}

func TestParseHarmCategory(t *testing.T) {
	c, err := ParseHarmCategory(" Hate_Speech ")
	require.NoError(t, err)
	require.Equal(t, HarmHateSpeech, c)

	_, err = ParseHarmCategory("spam")
	require.Error(t, err)
}
