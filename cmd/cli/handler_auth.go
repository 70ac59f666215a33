package main

import (
	"encoding/json"
	"net/http"

	"github.com/sguter90/airmaestro/pkg/api"
)

func (rm *RouteManager) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.LoginResponse{Message: "Invalid request body"})
		return
	}

	if rm.dbManager == nil {
		writeJSON(w, http.StatusServiceUnavailable, api.LoginResponse{Message: "User database unavailable"})
		return
	}

	user, err := rm.dbManager.ValidateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		rm.log.WithField("user", req.Username).Warn("login failed")
		writeJSON(w, http.StatusUnauthorized, api.LoginResponse{Message: "Invalid username or password"})
		return
	}

	token, expiresAt, err := GenerateJWT(user, rm.server.JWTSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, api.LoginResponse{Message: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, api.LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User: api.UserInfo{
			ID:       user.ID.String(),
			Username: user.Username,
		},
	})
}

func (rm *RouteManager) handleLogout(w http.ResponseWriter, r *http.Request) {
	// With JWT, logout is handled client-side by removing the token
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (rm *RouteManager) handleMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, api.UserInfo{
		ID:       user.ID.String(),
		Username: user.Username,
	})
}

func (rm *RouteManager) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := GenerateJWT(user, rm.server.JWTSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, api.LoginResponse{Message: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, api.LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User: api.UserInfo{
			ID:       user.ID.String(),
			Username: user.Username,
		},
	})
}
