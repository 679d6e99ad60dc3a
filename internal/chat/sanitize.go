package chat

import (
	"strings"
)

var markupEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// SanitizeText escapes markup so AI-generated or user-typed content cannot
// inject tags into the rendered conversation.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return markupEscaper.Replace(text)
}
