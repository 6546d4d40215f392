package skynetapi

import "strings"

// translations maps English messages emitted by the remote API to the Spanish
// copy shown to operators. Exact matches win over substring matches.
var translations = []struct {
	english string
	spanish string
}{
	{"Network Error", "Error de conexión. Verifica tu conexión a internet."},
	{"Request failed with status code 400", "Solicitud incorrecta. Verifica los datos ingresados."},
	{"Request failed with status code 401", "No autorizado. Por favor inicia sesión nuevamente."},
	{"Request failed with status code 403", "Acceso denegado. No tienes permisos para realizar esta acción."},
	{"Request failed with status code 404", "Recurso no encontrado. El servidor no pudo encontrar el recurso solicitado."},
	{"Request failed with status code 500", "Error del servidor. Por favor intenta más tarde."},
	{"Request failed with status code 503", "Servicio no disponible. El servidor está temporalmente fuera de servicio."},
	{"Invalid credentials", "Credenciales inválidas. Verifica tu email y contraseña."},
	{"User not found", "Usuario no encontrado."},
	{"Email already exists", "El correo electrónico ya está registrado."},
	{"Unauthorized", "No autorizado. Por favor inicia sesión."},
	{"Required field", "Este campo es requerido."},
	{"Invalid email", "El correo electrónico no es válido."},
	{"Password too short", "La contraseña es demasiado corta."},
	{"Passwords do not match", "Las contraseñas no coinciden."},
	{"timeout of", "Tiempo de espera agotado. Por favor intenta nuevamente."},
}

var statusMessages = map[int]string{
	400: "Solicitud incorrecta. Verifica los datos ingresados.",
	401: "No autorizado. Por favor inicia sesión nuevamente.",
	403: "Acceso denegado. No tienes permisos suficientes.",
	404: "Recurso no encontrado.",
	409: "Conflicto. El recurso ya existe.",
	422: "Los datos proporcionados no son válidos.",
	500: "Error interno del servidor. Intenta más tarde.",
	502: "Error de conexión con el servidor.",
	503: "Servicio no disponible temporalmente.",
}

func translate(message string) string {
	for _, entry := range translations {
		if entry.english == message {
			return entry.spanish
		}
	}
	for _, entry := range translations {
		if strings.Contains(message, entry.english) {
			return entry.spanish
		}
	}
	return message
}
