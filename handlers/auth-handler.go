package handlers

import (
	"encoding/json"
	"net/http"

	"taskhub/backend/logging"
	"taskhub/backend/models"
	"taskhub/backend/services"
)

type AuthHandler struct {
	UserService *services.UserService
	JWTService  *services.JWTService
}

func NewAuthHandler(userService *services.UserService, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{UserService: userService, JWTService: jwtService}
}

type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	user, err := h.UserService.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.JWTService.GenerateToken(user)
	if err != nil {
		logging.Logger.Errorf("Event ID: TOKEN_GENERATION_FAILED, Description: Failed to generate token for %s: %v", user.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logging.Logger.Infof("Event ID: USER_LOGGED_IN, Description: User %s logged in", user.Email)
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}
