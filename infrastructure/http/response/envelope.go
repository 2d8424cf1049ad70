package response

import (
	"encoding/json"
	"net/http"

	pkgerror "github.com/fixora/gatekeeper/pkg/error"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, status string, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	envelope := Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(envelope)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, StatusSuccess, message, data)
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, StatusFail, message, nil)
}

// FromError writes the public form of err.
func FromError(w http.ResponseWriter, err error) {
	mapped := pkgerror.MapError(err)
	Error(w, mapped.Status, mapped.Message)
}

func TooManyRequests(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
