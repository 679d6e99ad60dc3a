// Package chat drives one send-message cycle end to end: cooldown gating,
// optimistic persistence, provider streaming and failure classification.
package chat

import (
	"regexp"
	"strings"
)

var errorCodePrefix = regexp.MustCompile(`ERROR_NODO_[A-Z]+:`)

// ParseErrorMessage maps a raw provider/transport error into one user-facing
// message. Matching is substring and status-code based, case-insensitive and
// first-match-wins; configuration and session checks are tested before the
// generic status matches because their signatures can overlap. Every input
// maps to exactly one non-empty message; unmatched input falls through to the
// generic category with any internal error-code prefix stripped.
func ParseErrorMessage(rawError, providerName string) string {
	node := strings.ToUpper(providerName)
	defaultMessage := "El nodo " + node + " no responde. Verifica tu conexión o intenta más tarde."
	if rawError == "" {
		return defaultMessage
	}

	lower := strings.ToLower(rawError)

	switch {
	case strings.Contains(lower, "server_config_error"):
		return "[FALLA DE INTEGRIDAD DEL SISTEMA]\nEl núcleo no puede comunicarse con los servicios de autenticación. Las credenciales del servidor parecen estar desconfiguradas. El administrador ha sido notificado para una recalibración inmediata."
	case strings.Contains(lower, "failed to fetch"), strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "[ERROR DE RED]\nNo se pudo establecer conexión con el nodo " + node + ". Tu conexión a internet parece inestable o el servidor no está accesible. Por favor, verifica tu red e inténtalo de nuevo."
	case strings.Contains(lower, "sesión_expirada"):
		return "[FALLA DE SEGURIDAD]\nTu sesión ha expirado. Por favor, refresca la página para volver a iniciar sesión."
	case strings.Contains(lower, "fallo_integridad_usuario"), strings.Contains(lower, "operación_no_autorizada"):
		return "[FALLA DE SEGURIDAD]\nTu sesión parece ser inválida. Intenta refrescar la página o volver a iniciar sesión."
	case strings.Contains(lower, "api_key_missing"):
		return "[ERROR DE ENLACE SEGURO]\nLa clave de API para el nodo " + node + " no está configurada en el servidor. El administrador del sistema ha sido notificado."
	case strings.Contains(rawError, "429"), strings.Contains(lower, "límite"):
		return "[LÍMITE DE TASA EXCEDIDO]\nSe han enviado demasiadas solicitudes al nodo " + node + ". Por favor, espera unos momentos antes de volver a intentarlo."
	case strings.Contains(rawError, "500"), strings.Contains(rawError, "502"), strings.Contains(rawError, "503"):
		return "[ERROR DEL NODO REMOTO]\nEl servidor de " + node + " está experimentando problemas o está en mantenimiento. Intenta de nuevo más tarde."
	case strings.Contains(rawError, "400"):
		return "[SOLICITUD INVÁLIDA]\nEl comando enviado contiene un formato no válido o no pudo ser procesado por el modelo. Intenta reformular tu pregunta."
	case strings.Contains(rawError, "401"), strings.Contains(rawError, "403"):
		return "[ERROR DE AUTENTICACIÓN]\nFallo de seguridad en la conexión con el servidor de " + node + ". El administrador ha sido notificado."
	}

	cleaned := strings.TrimSpace(errorCodePrefix.ReplaceAllString(rawError, ""))
	if cleaned == "" {
		return "[ERROR INESPERADO]\n" + defaultMessage
	}
	return "[ERROR INESPERADO]\n" + cleaned
}

// CooldownMessage is the locally-synthesized error appended when sends arrive
// faster than the minimum inter-message interval.
const CooldownMessage = "[NÚCLEO SOBRECARGADO]\nHas enviado comandos demasiado rápido. Por favor, espera un momento para permitir que el sistema se estabilice."

// IsSessionExpired reports whether a raw error is the session-expiry signal,
// which aborts the whole cycle instead of producing a chat message.
func IsSessionExpired(rawError string) bool {
	return strings.Contains(strings.ToLower(rawError), "sesión_expirada")
}
