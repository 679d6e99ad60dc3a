package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorMessageNetworkFailure(t *testing.T) {
	msg := ParseErrorMessage("TypeError: Failed to fetch", "gemini")
	assert.Contains(t, msg, "[ERROR DE RED]")
	assert.Contains(t, msg, "GEMINI")
}

func TestParseErrorMessageEmptyInput(t *testing.T) {
	msg := ParseErrorMessage("", "openai")
	assert.Contains(t, msg, "no responde")
	assert.Contains(t, msg, "OPENAI")
}

func TestParseErrorMessageCategories(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		provider string
		want     string
	}{
		{"server config", "SERVER_CONFIG_ERROR: missing admin credentials", "gemini", "[FALLA DE INTEGRIDAD DEL SISTEMA]"},
		{"connection refused", "dial tcp: connection refused", "deepseek", "[ERROR DE RED]"},
		{"no such host", "lookup api.example: no such host", "openai", "[ERROR DE RED]"},
		{"session expired", "sesión_expirada", "gemini", "[FALLA DE SEGURIDAD]"},
		{"user integrity", "fallo_integridad_usuario", "gemini", "[FALLA DE SEGURIDAD]"},
		{"unauthorized op", "operación_no_autorizada", "openai", "[FALLA DE SEGURIDAD]"},
		{"missing key", "API_KEY_MISSING", "deepseek", "[ERROR DE ENLACE SEGURO]"},
		{"rate limited", "La API de 'openai' falló (429): Rate limit reached", "openai", "[LÍMITE DE TASA EXCEDIDO]"},
		{"server error", "La API de 'gemini' falló (503): overloaded", "gemini", "[ERROR DEL NODO REMOTO]"},
		{"bad request", "La API de 'openai' falló (400): invalid payload", "openai", "[SOLICITUD INVÁLIDA]"},
		{"auth failure", "La API de 'deepseek' falló (401): bad key", "deepseek", "[ERROR DE AUTENTICACIÓN]"},
		{"forbidden", "status 403 returned", "gemini", "[ERROR DE AUTENTICACIÓN]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, ParseErrorMessage(tt.raw, tt.provider), tt.want)
		})
	}
}

func TestParseErrorMessagePrecedence(t *testing.T) {
	// A network failure that also mentions a 500 must classify as network:
	// connectivity checks run before the generic status matches.
	msg := ParseErrorMessage("Failed to fetch after 500ms", "gemini")
	assert.Contains(t, msg, "[ERROR DE RED]")

	// Config errors outrank everything, even a 401 in the same string.
	msg = ParseErrorMessage("SERVER_CONFIG_ERROR caused 401", "openai")
	assert.Contains(t, msg, "[FALLA DE INTEGRIDAD DEL SISTEMA]")
}

func TestParseErrorMessageUnmatchedStripsCodePrefix(t *testing.T) {
	msg := ParseErrorMessage("ERROR_NODO_GEMINI: algo salió mal", "gemini")
	assert.Contains(t, msg, "[ERROR INESPERADO]")
	assert.Contains(t, msg, "algo salió mal")
	assert.NotContains(t, msg, "ERROR_NODO_GEMINI:")
}

func TestParseErrorMessageAlwaysNonEmpty(t *testing.T) {
	inputs := []string{"", "x", "ERROR_NODO_OPENAI:", "garbage with no category"}
	for _, in := range inputs {
		assert.NotEmpty(t, ParseErrorMessage(in, "openai"))
	}
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, IsSessionExpired("SESIÓN_EXPIRADA"))
	assert.True(t, IsSessionExpired("got sesión_expirada from server"))
	assert.False(t, IsSessionExpired("fallo_integridad_usuario"))
	assert.False(t, IsSessionExpired(""))
}
