package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"innostart.pro/innostart/internal/apierr"
)

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors apierr.ValidationErrors `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// fail writes err to the client. Validation problems are returned as is;
// not-found never says whether the record exists; anything unexpected is
// logged in full and replaced by message.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	var verrs apierr.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verrs})
		return
	}

	status := apierr.Status(err)
	switch {
	case status == http.StatusBadRequest:
		writeJSON(w, status, validationResponse{Errors: apierr.ValidationErrors{{Field: "request", Message: err.Error()}}})
	case status == http.StatusNotFound:
		writeError(w, status, "Not found")
	case status < http.StatusInternalServerError:
		var apiErr *apierr.Error
		errors.As(err, &apiErr)
		writeError(w, status, apiErr.Err.Error())
	default:
		h.log.Error(message, "error", err, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, message)
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.ValidationErrors{{Field: "body", Message: "Invalid JSON request body"}}
	}
	return nil
}
