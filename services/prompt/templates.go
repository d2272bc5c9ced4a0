package prompt

import (
	"regexp"
	"strings"
)

// Template is one text transformation offered to the user
type Template struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// builtins is the fixed context-menu set. Order is the menu order.
var builtins = []Template{
	{
		ID:     "fix_grammar",
		Title:  "Fix spelling and grammar",
		Prompt: "Fix the spelling and grammar. Return only the corrected text without quotes, explanations, or additional text:",
	},
	{
		ID:     "improve_writing",
		Title:  "Improve writing",
		Prompt: "Enhance the following text to improve clarity and flow. Return only the improved text without quotes, explanations, or additional text:",
	},
	{
		ID:     "make_professional",
		Title:  "Make more professional",
		Prompt: "Rewrite the text in a formal, professional tone. Return only the rewritten text without quotes, explanations, or additional text:",
	},
	{
		ID:     "simplify",
		Title:  "Simplify text",
		Prompt: "Simplify this text using simpler words and shorter sentences. Return only the simplified text without quotes, explanations, or additional text:",
	},
	{
		ID:     "summarize",
		Title:  "Summarize text",
		Prompt: "Provide a concise summary. Return only the summary without quotes, explanations, or additional text:",
	},
	{
		ID:     "expand",
		Title:  "Expand text",
		Prompt: "Elaborate on this text with more details and examples. Return only the expanded text without quotes, explanations, or additional text:",
	},
	{
		ID:     "bullet_points",
		Title:  "Convert to bullet points",
		Prompt: "Convert this text into bullet points. Return only the bullet-point list without quotes, explanations, or additional text:",
	},
}

// SuggestionsInstruction asks the model for a JSON array of suggestions
const SuggestionsInstruction = `Analyze this text for potential improvements. For each suggestion, provide: 1) the specific text to improve, 2) a brief explanation of why it should be improved, and 3) a suggested improvement. Format as JSON array with structure: [{"text": "...", "explanation": "...", "suggestion": "..."}]. Limit to the most important 2-3 suggestions:`

// Builtins returns a copy of the built-in templates
func Builtins() []Template {
	out := make([]Template, len(builtins))
	copy(out, builtins)
	return out
}

// Merge returns built-ins followed by each group of extra templates in order.
// Duplicate ids are kept; Lookup resolves them first-match-wins.
func Merge(extra ...[]Template) []Template {
	merged := Builtins()
	for _, group := range extra {
		merged = append(merged, group...)
	}
	return merged
}

// Lookup returns the first template with the given id
func Lookup(templates []Template, id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Compose joins the instruction and the selected text
func Compose(t Template, text string) string {
	return t.Prompt + "\n\n" + text
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a snake_case id, e.g. "Make it Pirate!" -> "make_it_pirate"
func Slugify(title string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "_")
	return strings.Trim(slug, "_")
}

// Sanitize drops templates with a blank title or prompt and fills missing
// ids from the title.
func Sanitize(templates []Template) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		t.Title = strings.TrimSpace(t.Title)
		t.Prompt = strings.TrimSpace(t.Prompt)
		if t.Title == "" || t.Prompt == "" {
			continue
		}
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			t.ID = Slugify(t.Title)
		}
		if t.ID == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
