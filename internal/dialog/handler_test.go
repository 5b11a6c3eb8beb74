// internal/dialog/handler_test.go
package dialog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postTurn(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/turns", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleTurn(t *testing.T) {
	f := newFixture(t, Options{})
	h := NewHandler(f.engine)

	rec := postTurn(t, h, TurnRequest{
		UserID: testUser,
		Intent: IntentAddBook,
		Slots: map[string]string{
			"titulo": "Dune", "autor": "Herbert", "tipo": "novela",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Speech, "He agregado 'Dune' a tu biblioteca.")
	assert.False(t, resp.EndSession)
	assert.NotNil(t, resp.Session)
}

func TestHandleTurnSessionRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	h := NewHandler(f.engine)

	rec := postTurn(t, h, TurnRequest{UserID: testUser, Intent: IntentAddBook})
	require.Equal(t, http.StatusOK, rec.Code)

	var first TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, true, first.Session[sessAddingBook])

	rec = postTurn(t, h, TurnRequest{
		UserID:  testUser,
		Intent:  IntentAnswer,
		Slots:   map[string]string{"respuesta": "El Principito"},
		Session: first.Session,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var second TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Contains(t, second.Speech, "¿Quién es el autor?")
}

func TestHandleTurnValidatesRequest(t *testing.T) {
	f := newFixture(t, Options{})
	h := NewHandler(f.engine)

	rec := postTurn(t, h, TurnRequest{Intent: IntentLaunch})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postTurn(t, h, TurnRequest{UserID: testUser})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTurnRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t, Options{})
	h := NewHandler(f.engine)

	req := httptest.NewRequest(http.MethodPost, "/turns", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
