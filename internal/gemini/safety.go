package gemini

import (
	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

var harmCategories = map[model.HarmCategory]genai.HarmCategory{
	model.HarmHarassment:       genai.HarmCategoryHarassment,
	model.HarmHateSpeech:       genai.HarmCategoryHateSpeech,
	model.HarmSexuallyExplicit: genai.HarmCategorySexuallyExplicit,
	model.HarmDangerousContent: genai.HarmCategoryDangerousContent,
}

var thresholds = map[model.Threshold]genai.HarmBlockThreshold{
	model.ThresholdBlockLowAndAbove:    genai.HarmBlockThresholdBlockLowAndAbove,
	model.ThresholdBlockMediumAndAbove: genai.HarmBlockThresholdBlockMediumAndAbove,
	model.ThresholdBlockOnlyHigh:       genai.HarmBlockThresholdBlockOnlyHigh,
	model.ThresholdBlockNone:           genai.HarmBlockThresholdBlockNone,
}

// SafetySettings converts policy to Gemini settings. A nil policy is the
// strictest one.
func SafetySettings(policy model.SafetyPolicy) []*genai.SafetySetting {
	if policy == nil {
		policy = model.StrictSafetyPolicy()
	}
	settings := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, c := range policy.Categories() {
		category, ok := harmCategories[c]
		if !ok {
			continue
		}
		threshold, ok := thresholds[policy.Threshold(c)]
		if !ok {
			threshold = genai.HarmBlockThresholdBlockLowAndAbove
		}
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}
	return settings
}
