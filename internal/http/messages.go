package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys for user facing response texts.
const (
	msgBadRequest        = "http.bad_request"
	msgUnauthorized      = "http.unauthorized"
	msgSessionExpired    = "http.session_expired"
	msgMissingToken      = "http.missing_token"
	msgInvalidCreds      = "http.invalid_credentials"
	msgForbidden         = "http.forbidden"
	msgNotFound          = "http.not_found"
	msgConflict          = "http.conflict"
	msgInvalidTransition = "http.invalid_transition"
	msgValidation        = "http.validation"
	msgRemoteUnavailable = "http.remote_unavailable"
	msgInternal          = "http.internal"
	msgInvalidID         = "http.invalid_id"
	msgInvalidBucket     = "http.invalid_bucket"
	msgSessionCheck      = "http.session_check_failed"
	msgEmailSent         = "http.email_sent"
	msgEmailFailed       = "http.email_failed"
)

var messageLanguage = language.Spanish

var spanishMessages = map[string]string{
	msgBadRequest:        "La solicitud no tiene un formato válido.",
	msgUnauthorized:      "Sesión inválida. Inicie sesión nuevamente.",
	msgSessionExpired:    "Su sesión ha expirado. Inicie sesión nuevamente.",
	msgMissingToken:      "Debe proporcionar un token de sesión.",
	msgInvalidCreds:      "Correo electrónico o contraseña incorrectos.",
	msgForbidden:         "No tiene permisos para realizar esta acción.",
	msgNotFound:          "El recurso solicitado no existe.",
	msgConflict:          "La solicitud entra en conflicto con el estado actual del recurso.",
	msgInvalidTransition: "La visita no admite ese cambio de estado.",
	msgValidation:        "Los datos enviados no son válidos.",
	msgRemoteUnavailable: "No se pudo conectar con el servidor. Intente nuevamente.",
	msgInternal:          "Ocurrió un error interno en el servidor.",
	msgInvalidID:         "El identificador %q no es válido.",
	msgInvalidBucket:     "El rango de fechas %q no es válido.",
	msgSessionCheck:      "Ocurrió un error al verificar la sesión.",
	msgEmailSent:         "Email enviado correctamente",
	msgEmailFailed:       "Error al enviar el email",
}

func init() {
	for key, text := range spanishMessages {
		if err := message.SetString(messageLanguage, key, text); err != nil {
			panic(err)
		}
	}
}

// localize renders the catalog entry for key.
func localize(key string, args ...any) string {
	return message.NewPrinter(messageLanguage).Sprintf(key, args...)
}
