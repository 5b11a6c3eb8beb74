// internal/dialog/extract_test.go
package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeTextPrefersAnswerSlot(t *testing.T) {
	got := freeText(Turn{
		Intent: IntentAnswer,
		Slots:  map[string]string{"respuesta": "  Dune  ", "titulo": "otro"},
	})
	assert.Equal(t, "Dune", got)
}

func TestFreeTextFallsBackToAnySlot(t *testing.T) {
	got := freeText(Turn{
		Intent: IntentSearchBook,
		Slots:  map[string]string{"titulo": "Rayuela"},
	})
	assert.Equal(t, "Rayuela", got)
}

func TestFreeTextEmpty(t *testing.T) {
	assert.Equal(t, "", freeText(Turn{Intent: IntentAnswer}))
	assert.Equal(t, "", freeText(Turn{Intent: IntentAnswer, Slots: map[string]string{"respuesta": "   "}}))
}

func TestDontKnow(t *testing.T) {
	assert.True(t, dontKnow("no sé", "autor"))
	assert.True(t, dontKnow("No Se", "autor"))
	assert.True(t, dontKnow("no lo sé", "autor"))
	assert.True(t, dontKnow("no sé el autor", "autor"))
	assert.False(t, dontKnow("no sé el tipo", "autor"))
	assert.False(t, dontKnow("García Márquez", "autor"))
}

func TestStripFieldPrefix(t *testing.T) {
	assert.Equal(t, "Gabriel García Márquez", stripFieldPrefix("el autor es Gabriel García Márquez", "autor"))
	assert.Equal(t, "novela", stripFieldPrefix("es novela", "tipo"))
	assert.Equal(t, "Dune", stripFieldPrefix("Dune", "titulo"))
}
