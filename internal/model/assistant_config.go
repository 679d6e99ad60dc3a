package model

// Persona names recognized by the prompt builder.
const (
	PersonaDefault  = "Estilo Original del Modelo"
	PersonaHacker   = "Hacker de élite"
	PersonaCreative = "Compañero creativo"
)

// ConfigVersion is the current AssistantConfig schema version. Stored configs
// carrying an older (or missing) version are migrated by Normalize.
const ConfigVersion = 2

// AssistantConfig is the per-user assistant configuration. It is persisted
// client-side; the server treats it as advisory input when building prompts.
type AssistantConfig struct {
	Version          int      `json:"version"`
	Role             string   `json:"role"`
	Emojis           bool     `json:"emojis"`
	Nickname         string   `json:"nickname"`
	Timezone         string   `json:"timezone"`
	EnabledProviders []string `json:"enabledProviders"`
	SelectedProvider string   `json:"selectedProvider"`
	Language         string   `json:"language"`
}

// DefaultAssistantConfig returns the baseline configuration for a user.
func DefaultAssistantConfig(nickname string) AssistantConfig {
	return AssistantConfig{
		Version:          ConfigVersion,
		Role:             PersonaDefault,
		Emojis:           true,
		Nickname:         nickname,
		Timezone:         "America/Mexico_City",
		EnabledProviders: []string{"gemini", "openai", "deepseek"},
		SelectedProvider: "gemini",
		Language:         "Español (México)",
	}
}

// Normalize migrates a stored config to the current version, filling every
// missing field from the defaults. It is the single origin point for new
// fields: partial configs loaded from older clients come out complete.
// The selected provider must be one of the enabled set; anything else falls
// back to the first enabled provider.
func (c AssistantConfig) Normalize(nickname string) AssistantConfig {
	def := DefaultAssistantConfig(nickname)

	if c.Role == "" {
		c.Role = def.Role
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if len(c.EnabledProviders) == 0 {
		c.EnabledProviders = def.EnabledProviders
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.Version < 2 {
		// v1 configs predate emoji preferences; they default on.
		c.Emojis = true
	}

	// Nickname always follows the account username.
	c.Nickname = nickname

	if !contains(c.EnabledProviders, c.SelectedProvider) {
		c.SelectedProvider = c.EnabledProviders[0]
	}

	c.Version = ConfigVersion
	return c
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
