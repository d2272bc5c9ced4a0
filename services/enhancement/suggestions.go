package enhancement

import (
	"encoding/json"
	"strings"

	"github.com/zlwaterfield/scramble/services"
)

// ParseSuggestions extracts the JSON array from a model reply. Models often
// wrap it in prose or a markdown code fence.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, services.NewProviderError(services.ErrSuggestionsParsing.Message, nil)
	}

	var out []Suggestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, services.NewProviderError(services.ErrSuggestionsParsing.Message, err)
	}

	kept := out[:0]
	for _, sg := range out {
		if strings.TrimSpace(sg.Text) == "" && strings.TrimSpace(sg.Suggestion) == "" {
			continue
		}
		kept = append(kept, sg)
	}
	return kept, nil
}
