// internal/dialog/domain.go
package dialog

// Turn is one inbound exchange from the voice platform. Intent recognition
// and slot filling already happened on the platform side; Session carries
// the conversation-scoped variables exactly as the previous turn left them.
type Turn struct {
	Intent  string
	Slots   map[string]string
	Session map[string]any
}

// Response is the outbound half of a turn. Session must be handed back to
// the platform unchanged so it round-trips into the next Turn.
type Response struct {
	Speech     string
	Reprompt   string
	Session    map[string]any
	EndSession bool
}

// Intent names, matching the interaction model of the voice skill.
const (
	IntentLaunch        = "LaunchRequest"
	IntentSessionEnded  = "SessionEndedRequest"
	IntentAddBook       = "AgregarLibroIntent"
	IntentAnswer        = "RespuestaGeneralIntent"
	IntentListBooks     = "ListarLibrosIntent"
	IntentNextPage      = "SiguientePaginaIntent"
	IntentExitListing   = "SalirListadoIntent"
	IntentLoanBook      = "PrestarLibroIntent"
	IntentReturnBook    = "DevolverLibroIntent"
	IntentActiveLoans   = "ConsultarPrestamosIntent"
	IntentReturnedLoans = "ConsultarDevueltosIntent"
	IntentSearchBook    = "BuscarLibroIntent"
	IntentDeleteBook    = "EliminarLibroIntent"
	IntentStatistics    = "EstadisticasIntent"
	IntentRefreshCache  = "LimpiarCacheIntent"
	IntentWipeLibrary   = "LimpiarBibliotecaIntent"
	IntentShowOptions   = "MostrarOpcionesIntent"
	IntentYes           = "AMAZON.YesIntent"
	IntentNo            = "AMAZON.NoIntent"
	IntentHelp          = "AMAZON.HelpIntent"
	IntentCancel        = "AMAZON.CancelIntent"
	IntentStop          = "AMAZON.StopIntent"
	IntentFallback      = "AMAZON.FallbackIntent"
)

// Slot names.
const (
	slotTitle    = "titulo"
	slotAuthor   = "autor"
	slotCategory = "tipo"
	slotBorrower = "nombre_persona"
	slotFilter   = "filtro_tipo"
	slotAnswer   = "respuesta"
	slotLoanID   = "id_prestamo"
	slotBookID   = "id_libro"
)

// Session variable keys. None of these survive the conversation; losing them
// just restarts the active flow.
const (
	sessAddingBook   = "agregando_libro"
	sessAwaiting     = "esperando"
	sessTitleTemp    = "titulo_temp"
	sessAuthorTemp   = "autor_temp"
	sessPage         = "pagina_libros"
	sessListing      = "listando_libros"
	sessListAuthor   = "autor"
	sessListFilter   = "filtro"
	sessDeleteBookID = "eliminar_libro_id"
	sessDeleteTitle  = "eliminar_titulo"
	sessConfirmWipe  = "limpiar_pendiente"
)

// Values of the sessAwaiting variable.
const (
	awaitTitle    = "titulo"
	awaitAuthor   = "autor"
	awaitCategory = "tipo"
)

func cloneSession(sess map[string]any) map[string]any {
	out := make(map[string]any, len(sess))
	for k, v := range sess {
		out[k] = v
	}
	return out
}

func sessionString(sess map[string]any, key string) string {
	if v, ok := sess[key].(string); ok {
		return v
	}
	return ""
}

func sessionBool(sess map[string]any, key string) bool {
	if v, ok := sess[key].(bool); ok {
		return v
	}
	return false
}

// sessionInt copes with numbers that round-tripped through JSON, where every
// number comes back as float64.
func sessionInt(sess map[string]any, key string) int {
	switch v := sess[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
