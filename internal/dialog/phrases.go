// internal/dialog/phrases.go
package dialog

import (
	"strconv"
	"time"
)

// Phrase pools keep the spoken responses from sounding canned; one entry is
// picked at random per response.

var greetings = []string{
	"¡Hola! ¡Qué gusto tenerte aquí!",
	"¡Bienvenido de vuelta!",
	"¡Hola! Me alegra que estés aquí.",
	"¡Qué bueno verte por aquí!",
	"¡Hola! Espero que tengas un excelente día.",
}

var menuOptions = []string{
	"Puedo ayudarte a gestionar tu biblioteca personal. Puedes agregar libros nuevos, ver tu lista de libros, prestar libros a tus amigos, registrar devoluciones o consultar qué libros tienes prestados.",
	"Tengo varias opciones para ti: agregar libros a tu colección, listar todos tus libros, prestar un libro a alguien, devolver un libro que te regresaron, o ver tus préstamos activos.",
	"Puedo hacer varias cosas: agregar libros nuevos a tu biblioteca, mostrarte qué libros tienes, ayudarte a prestar libros, registrar cuando te los devuelven, o decirte qué libros están prestados.",
}

var whatToDo = []string{
	"¿Qué te gustaría hacer hoy?",
	"¿En qué puedo ayudarte?",
	"¿Qué necesitas?",
	"¿Cómo puedo ayudarte con tu biblioteca?",
	"¿Qué quieres hacer?",
}

var anythingElse = []string{
	"¿Hay algo más en lo que pueda ayudarte?",
	"¿Necesitas algo más?",
	"¿Qué más puedo hacer por ti?",
	"¿Te ayudo con algo más?",
	"¿Hay algo más que quieras hacer?",
}

var confirmations = []string{
	"¡Perfecto!",
	"¡Excelente!",
	"¡Genial!",
	"¡Muy bien!",
	"¡Estupendo!",
}

var spanishMonths = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// formatDateES renders a date the way it is spoken, e.g. "7 de septiembre".
func formatDateES(t time.Time) string {
	return strconv.Itoa(t.Day()) + " de " + spanishMonths[t.Month()-1]
}
