package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleamarket/internal/ipauth"
	"fleamarket/models"
)

// ipFields limits the preloaded IP history to its public columns. user_id is
// needed for gorm to match the association.
func ipFields(db *gorm.DB) *gorm.DB {
	return db.Select("id", "ip", "user_id", "created_at")
}

// GetCurrentUser handles GET /api/users/me.
func GetCurrentUser(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	current, ok := ipauth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var user models.User
	err := db.Preload("IPAddresses", ipFields).First(&user, current.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		log.Error("fetching current user failed", zap.Uint("user_id", current.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	respondData(w, http.StatusOK, "", user)
}

type updateUserRequest struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id"`
	Department string `json:"department"`
	Avatar     string `json:"avatar"`
}

// UpdateCurrentUser handles PUT /api/users/me. The employee id is mandatory;
// the other fields are applied only when present.
func UpdateCurrentUser(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	current, ok := ipauth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		respondError(w, http.StatusBadRequest, "employee id is required", nil)
		return
	}

	updates := map[string]any{"employee_id": req.EmployeeID}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Department != "" {
		updates["department"] = req.Department
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}

	if err := db.Model(&models.User{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
		log.Error("updating user failed", zap.Uint("user_id", current.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update user", err)
		return
	}

	var user models.User
	if err := db.Preload("IPAddresses", ipFields).First(&user, current.ID).Error; err != nil {
		log.Error("reloading user failed", zap.Uint("user_id", current.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	respondData(w, http.StatusOK, "user updated", user)
}

// GetUserByID handles GET /api/users/user/{id}, the public profile read.
func GetUserByID(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found", nil)
		return
	}

	var user models.User
	err = db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		log.Error("fetching user failed", zap.Uint64("user_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	respondData(w, http.StatusOK, "", user)
}
