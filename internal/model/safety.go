package model

import (
	"fmt"
	"sort"
	"strings"
)

// HarmCategory names a content-filter category.
type HarmCategory string

const (
	HarmHarassment       HarmCategory = "harassment"
	HarmHateSpeech       HarmCategory = "hate_speech"
	HarmSexuallyExplicit HarmCategory = "sexually_explicit"
	HarmDangerousContent HarmCategory = "dangerous_content"
)

// Threshold is the blocking level applied to a category.
type Threshold string

const (
	ThresholdBlockLowAndAbove    Threshold = "block_low_and_above"
	ThresholdBlockMediumAndAbove Threshold = "block_medium_and_above"
	ThresholdBlockOnlyHigh       Threshold = "block_only_high"
	ThresholdBlockNone           Threshold = "block_none"
)

// HarmCategories lists every category a policy covers.
var HarmCategories = []HarmCategory{
	HarmHarassment,
	HarmHateSpeech,
	HarmSexuallyExplicit,
	HarmDangerousContent,
}

// SafetyPolicy maps each category to its threshold. Missing categories use
// the strictest threshold.
type SafetyPolicy map[HarmCategory]Threshold

// StrictSafetyPolicy blocks low probability content and above in every category.
func StrictSafetyPolicy() SafetyPolicy {
	p := SafetyPolicy{}
	for _, c := range HarmCategories {
		p[c] = ThresholdBlockLowAndAbove
	}
	return p
}

// Relax returns a copy of p with the given categories set to block nothing.
func (p SafetyPolicy) Relax(categories ...HarmCategory) SafetyPolicy {
	out := SafetyPolicy{}
	for _, c := range HarmCategories {
		out[c] = p.Threshold(c)
	}
	for _, c := range categories {
		out[c] = ThresholdBlockNone
	}
	return out
}

// Threshold returns the threshold for c.
func (p SafetyPolicy) Threshold(c HarmCategory) Threshold {
	if t, ok := p[c]; ok && t != "" {
		return t
	}
	return ThresholdBlockLowAndAbove
}

// Categories returns the policy's categories in a stable order.
func (p SafetyPolicy) Categories() []HarmCategory {
	seen := map[HarmCategory]bool{}
	out := append([]HarmCategory{}, HarmCategories...)
	for _, c := range HarmCategories {
		seen[c] = true
	}
	var extra []HarmCategory
	for c := range p {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// ParseHarmCategory accepts the config spelling of a category.
func ParseHarmCategory(s string) (HarmCategory, error) {
	c := HarmCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range HarmCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown harm category: %q", s)
}
