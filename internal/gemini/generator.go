package gemini

import (
	"context"
	"strings"

	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

// InlineSource resolves a handle to locally held persona and document text.
type InlineSource interface {
	Lookup(handle string) (persona, text string, ok bool)
}

// Generator implements conversation.Generator on the Gemini Models API.
type Generator struct {
	models      ModelAPI
	model       string
	temperature float32
	inline      InlineSource
}

func NewGenerator(models ModelAPI, opts Options) *Generator {
	return &Generator{
		models:      models,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

// WithInline returns a generator that injects the document text from src as
// system instruction instead of referencing a server-side cached context.
func (g *Generator) WithInline(src InlineSource) *Generator {
	out := *g
	out.inline = src
	return &out
}

func (g *Generator) Generate(ctx context.Context, handle string, turns []model.Turn, policy model.SafetyPolicy) (model.Generation, error) {
	config := &genai.GenerateContentConfig{
		SafetySettings: SafetySettings(policy),
		Temperature:    genai.Ptr(g.temperature),
	}

	if g.inline != nil {
		persona, text, ok := g.inline.Lookup(handle)
		if !ok {
			return model.Generation{}, model.Errorf(model.KindCacheExpired, "inline context %q expired", handle)
		}
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: InlineInstruction(persona, text)}},
		}
	} else {
		config.CachedContent = handle
	}

	resp, err := g.models.GenerateContent(ctx, g.model, toGenAIContents(turns), config)
	if err != nil {
		return model.Generation{}, classifyError(err)
	}
	return toGeneration(resp), nil
}

// InlineInstruction appends the full document text to the persona.
func InlineInstruction(persona, text string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n--- [DOCUMENT START] ---\n")
	b.WriteString(text)
	b.WriteString("\n--- [DOCUMENT END] ---")
	return b.String()
}

var blockingFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

func toGeneration(resp *genai.GenerateContentResponse) model.Generation {
	if resp == nil {
		return model.Generation{BlockReason: model.ReasonEmpty}
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return model.Generation{BlockReason: string(fb.BlockReason)}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return model.Generation{BlockReason: model.ReasonEmpty}
	}

	candidate := resp.Candidates[0]
	finish := string(candidate.FinishReason)
	if blockingFinishReasons[finish] {
		return model.Generation{BlockReason: finish}
	}

	text := strings.TrimSpace(candidateText(candidate))
	if text == "" {
		if finish == "" || finish == "STOP" {
			finish = model.ReasonEmpty
		}
		return model.Generation{BlockReason: finish}
	}
	return model.Generation{Text: text}
}

func candidateText(c *genai.Candidate) string {
	if c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func toGenAIContents(turns []model.Turn) []*genai.Content {
	result := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		content := &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t.Content}},
		}
		if t.Role == model.RoleAssistant {
			content.Role = genai.RoleModel
		}
		result = append(result, content)
	}
	return result
}
