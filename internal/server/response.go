package server

import (
	"encoding/json"
	"log"
	"net/http"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
)

// Response is the envelope every mutating call answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, code int, message string, data interface{}) {
	writeJSON(w, code, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	message := err.Error()
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		code = http.StatusBadRequest
	case apperrors.KindConflict:
		code = http.StatusConflict
	case apperrors.KindNotFound:
		code = http.StatusNotFound
	default:
		log.Printf("internal error: %v", err)
		message = "internal error"
	}
	writeJSON(w, code, Response{Success: false, Message: message})
}
