package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskhub/backend/logging"
	"taskhub/backend/models"
	"taskhub/backend/policy"
	"taskhub/backend/services"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError is the single place the error taxonomy becomes HTTP status
// codes. Services never see status codes; store failures never leak their
// cause to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, policy.ErrAdminOnly):
		writeMessage(w, http.StatusForbidden, "Admin only")
	case errors.Is(err, policy.ErrNotAuthorized):
		writeMessage(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, policy.ErrAccessDenied):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case models.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, err.Error())
	case models.IsValidation(err), models.IsConflict(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
