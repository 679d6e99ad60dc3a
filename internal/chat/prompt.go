package chat

import (
	"github.com/adalparedes/adalcore/internal/model"
)

// BuildSystemPrompt folds the user's persona, nickname and language
// configuration into the system instruction sent upstream.
func BuildSystemPrompt(cfg model.AssistantConfig) string {
	base := "Tu identidad principal: Eres un experto en tecnología de México. " +
		"Tu lenguaje OBLIGATORIO Y ÚNICO es Español de México. " +
		"TODAS tus respuestas deben ser en este idioma, sin excepciones. " +
		"Si un usuario te habla en otro idioma, responde en Español de México que es tu único canal de comunicación. " +
		"Mantén un tono profesional pero amigable. Ayuda al usuario '" + cfg.Nickname + "'."

	var role string
	switch cfg.Role {
	case model.PersonaHacker:
		role = "Actúa como un hacker de élite. Tu estilo es cyber-punk, directo, conciso y técnico. Usa jerga de hacking. "
		if cfg.Emojis {
			role += "Usa emojis temáticos sutiles (💀, 🤖, ⚡)."
		} else {
			role += "No uses emojis."
		}
	case model.PersonaCreative:
		role = "Actúa como un compañero creativo. Tu enfoque es el brainstorming y las ideas innovadoras. Sé inspirador. "
		if cfg.Emojis {
			role += "Usa emojis para expresar creatividad (✨, 💡, 🚀)."
		} else {
			role += "No uses emojis."
		}
	default:
		role = "Mantén tu estilo original, pero sé amigable y servicial. "
		if cfg.Emojis {
			role += "Puedes usar emojis de forma sutil."
		} else {
			role += "No uses emojis."
		}
	}

	return base + " " + role
}

// ReinforceUserContent prefixes the user text with the mandatory-language
// instruction the upstream models respect more reliably than the system
// prompt alone.
func ReinforceUserContent(text string) string {
	return "(RESPUESTA OBLIGATORIA EN ESPAÑOL DE MÉXICO) " + text
}

// AttachmentFallbackText is the synthesized user text for attachment-only sends.
const AttachmentFallbackText = "Analiza el archivo adjunto y describe su contenido en detalle, siguiendo todas las demás instrucciones del sistema."

var languageCodes = map[string]string{
	"Español (México)":     "es-MX",
	"English (US)":         "en-US",
	"French":               "fr-FR",
	"German":               "de-DE",
	"Italian":              "it-IT",
	"Portuguese":           "pt-BR",
	"Japanese":             "ja-JP",
	"Korean":               "ko-KR",
	"Chinese (Simplified)": "zh-CN",
	"Russian":              "ru-RU",
	"Arabic":               "ar-SA",
	"Hindi":                "hi-IN",
}

// LanguageCode maps a UI language name to its ISO code, defaulting to es-MX.
func LanguageCode(name string) string {
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return "es-MX"
}
