package models

// Setting keys as stored in the key-value settings table. They match the
// keys the browser extension keeps in its synced storage.
const (
	SettingKeyProvider       = "provider"
	SettingKeyAPIKey         = "apiKey"
	SettingKeyModel          = "model"
	SettingKeyCustomEndpoint = "customEndpoint"
	SettingKeyCustomPrompts  = "customPrompts"
)

// SettingKeys lists every persisted key in a stable order
var SettingKeys = []string{
	SettingKeyProvider,
	SettingKeyAPIKey,
	SettingKeyModel,
	SettingKeyCustomEndpoint,
	SettingKeyCustomPrompts,
}

// Default setting values applied when a key is absent
const (
	DefaultProvider = "openai"
	DefaultModel    = "gpt-3.5-turbo"
)

// CustomPrompt is a user-defined transformation
type CustomPrompt struct {
	ID     string `json:"id"`
	Title  string `json:"title" validate:"required,max=200"`
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

// Settings is the single active provider selection plus custom prompts
type Settings struct {
	Provider       string         `json:"provider" validate:"required"`
	APIKey         string         `json:"apiKey"`
	Model          string         `json:"model"`
	CustomEndpoint string         `json:"customEndpoint" validate:"omitempty,url"`
	CustomPrompts  []CustomPrompt `json:"customPrompts" validate:"dive"`
}

// DefaultSettings returns the settings used before anything is saved
func DefaultSettings() *Settings {
	return &Settings{
		Provider:      DefaultProvider,
		Model:         DefaultModel,
		CustomPrompts: []CustomPrompt{},
	}
}

// HasAPIKey reports whether an API key is configured
func (s *Settings) HasAPIKey() bool {
	return s.APIKey != ""
}
