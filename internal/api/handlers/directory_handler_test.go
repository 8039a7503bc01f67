package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iic3964/leyurgencia/backend/internal/api/handlers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

func TestDirectoryHandler(t *testing.T) {
	directory := &stubDirectory{
		patients: []*entities.Patient{
			{ID: "patient-1", RUT: "11111111-1", FirstName: "Ana", LastName: "Rojas"},
			{ID: "patient-2", RUT: "22222222-2", FirstName: "Luis", LastName: "Soto"},
		},
		residents:   []*entities.User{{ID: "resident-1", FirstName: "Camila", Role: entities.UserRoleResident}},
		supervisors: []*entities.User{},
	}
	handler := handlers.NewDirectoryHandler(directory, directory)

	t.Run("patients", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListPatients(w, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.EqualValues(t, 2, body["count"])
		assert.Len(t, body["patients"], 2)
	})

	t.Run("residents", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListResidents(w, httptest.NewRequest(http.MethodGet, "/api/v1/doctors/residents", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decodeBody(t, w)["count"])
	})

	t.Run("supervisors", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListSupervisors(w, httptest.NewRequest(http.MethodGet, "/api/v1/doctors/supervisors", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.EqualValues(t, 0, body["count"])
		assert.Empty(t, body["doctors"])
	})
}

func TestDirectoryHandler_Error(t *testing.T) {
	directory := &stubDirectory{err: errors.New("connection reset")}
	handler := handlers.NewDirectoryHandler(directory, directory)

	w := httptest.NewRecorder()
	handler.ListPatients(w, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody(t, w)["error"])
}
