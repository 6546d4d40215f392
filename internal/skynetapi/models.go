package skynetapi

// Visita is the visit resource as served by /visitas.
type Visita struct {
	ID                  int64   `json:"id"`
	IDCliente           int64   `json:"idCliente"`
	NombreCliente       string  `json:"nombreCliente"`
	IDTecnico           string  `json:"idTecnico"`
	NombreTecnico       string  `json:"nombreTecnico"`
	IDSupervisor        *string `json:"idSupervisor,omitempty"`
	NombreSupervisor    *string `json:"nombreSupervisor,omitempty"`
	IDEstadoVisita      int     `json:"idEstadoVisita"`
	EstadoVisita        string  `json:"estadoVisita"`
	IDTipoVisita        int     `json:"idTipoVisita"`
	TipoVisita          string  `json:"tipoVisita"`
	FechaHoraProgramada string  `json:"fechaHoraProgramada"`
	Descripcion         *string `json:"descripcion,omitempty"`
	IDRegistroVisita    *int64  `json:"idRegistroVisita,omitempty"`
	FechaHoraInicioReal *string `json:"fechaHoraInicioReal,omitempty"`
	FechaHoraFinReal    *string `json:"fechaHoraFinReal,omitempty"`
	Observaciones       *string `json:"observaciones,omitempty"`
}

// CrearVisitaRequest is the body for creating or updating a visit.
type CrearVisitaRequest struct {
	IDCliente           int64  `json:"idCliente"`
	IDTecnico           string `json:"idTecnico"`
	IDSupervisor        string `json:"idSupervisor,omitempty"`
	IDEstadoVisita      int    `json:"idEstadoVisita"`
	IDTipoVisita        int    `json:"idTipoVisita"`
	FechaHoraProgramada string `json:"fechaHoraProgramada"`
	Descripcion         string `json:"descripcion,omitempty"`
}

// RegistrarVisitaRequest is the body for recording a visit's execution.
type RegistrarVisitaRequest struct {
	FechaHoraInicioReal string `json:"fechaHoraInicioReal"`
	FechaHoraFinReal    string `json:"fechaHoraFinReal"`
	Observaciones       string `json:"observaciones"`
}

// VisitaDetalle is the visit plus its client as served by /visitas/{id}/detalle.
type VisitaDetalle struct {
	Visita  Visita  `json:"visita"`
	Cliente Cliente `json:"cliente"`
}

// Cliente is the client resource.
type Cliente struct {
	ID                int64   `json:"id"`
	PrimerNombre      string  `json:"primerNombre"`
	SegundoNombre     string  `json:"segundoNombre,omitempty"`
	TercerNombre      string  `json:"tercerNombre,omitempty"`
	PrimerApellido    string  `json:"primerApellido"`
	SegundoApellido   string  `json:"segundoApellido,omitempty"`
	Telefono          string  `json:"telefono"`
	CorreoElectronico string  `json:"correoElectronico"`
	Latitud           float64 `json:"latitud"`
	Longitud          float64 `json:"longitud"`
	Direccion         string  `json:"direccion"`
	Estado            bool    `json:"estado"`
}

// CrearClienteRequest is the body for creating or updating a client.
type CrearClienteRequest struct {
	PrimerNombre      string  `json:"primerNombre"`
	SegundoNombre     string  `json:"segundoNombre,omitempty"`
	TercerNombre      string  `json:"tercerNombre,omitempty"`
	PrimerApellido    string  `json:"primerApellido"`
	SegundoApellido   string  `json:"segundoApellido,omitempty"`
	Telefono          string  `json:"telefono"`
	CorreoElectronico string  `json:"correoElectronico"`
	Latitud           float64 `json:"latitud"`
	Longitud          float64 `json:"longitud"`
	Direccion         string  `json:"direccion"`
}

// Usuario is the user resource served by /usuarios.
type Usuario struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Roles         []string `json:"roles"`
	FirstName     string   `json:"firstName,omitempty"`
	MiddleName    string   `json:"middleName,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	SecondSurname string   `json:"secondSurname,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Status        *bool    `json:"status,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
}

// AuthResponse is returned by login and token renewal.
type AuthResponse struct {
	Token      string `json:"token"`
	Expiracion string `json:"expiracion"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ActualizarPerfilRequest updates another user's profile (administrators).
type ActualizarPerfilRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	MiddleName    string `json:"middleName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	SecondSurname string `json:"secondSurname,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Status        *bool  `json:"status,omitempty"`
}

// RolRequest assigns or removes a role.
type RolRequest struct {
	Email string `json:"email"`
	Rol   string `json:"rol"`
}

// EstadoUsuarioRequest toggles a user's active flag.
type EstadoUsuarioRequest struct {
	Email  string `json:"email"`
	Status bool   `json:"status"`
}

// CambiarContraseniaRequest changes the caller's own password.
type CambiarContraseniaRequest struct {
	ContraseniaActual    string `json:"contraseniaActual"`
	NuevaContrasenia     string `json:"nuevaContrasenia"`
	ConfirmarContrasenia string `json:"confirmarContrasenia"`
}

// RestablecerContraseniaRequest resets another user's password.
type RestablecerContraseniaRequest struct {
	Email                string `json:"email"`
	NuevaContrasenia     string `json:"nuevaContrasenia"`
	ConfirmarContrasenia string `json:"confirmarContrasenia"`
}

// RegistrarUsuarioRequest creates a user account.
type RegistrarUsuarioRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName,omitempty"`
	LastName      string `json:"lastName"`
	SecondSurname string `json:"secondSurname,omitempty"`
	Phone         string `json:"phone"`
}
