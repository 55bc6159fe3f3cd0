package handlers

import (
	"io"
	"net/http"
	"path"
	"strings"

	"taskhub/backend/middleware"
	"taskhub/backend/services"
)

// maxAvatarSize caps avatar uploads at 3MB, matching the file-store
// collaborator's limit.
const maxAvatarSize = 3 << 20

type UserHandler struct {
	UserService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{UserService: userService}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.UserService.GetByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.GetAllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func isAllowedImage(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// UpdateProfile accepts a multipart form with optional name, password
// change, avatar file, and removeAvatar flag.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	patch := services.ProfilePatch{
		CurrentPassword: r.FormValue("currentPassword"),
		NewPassword:     r.FormValue("newPassword"),
		RemoveAvatar:    r.FormValue("removeAvatar") == "true",
	}
	if _, ok := r.MultipartForm.Value["name"]; ok {
		name := r.FormValue("name")
		patch.Name = &name
	}

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()

		if !isAllowedImage(header.Filename) {
			writeMessage(w, http.StatusBadRequest, "Only image files are allowed (jpg, png, gif)")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize+1))
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Failed to read avatar file")
			return
		}
		if len(data) > maxAvatarSize {
			writeMessage(w, http.StatusBadRequest, "Avatar file too large")
			return
		}
		patch.Avatar = &services.AvatarUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	user, err := h.UserService.UpdateProfile(r.Context(), identity.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
