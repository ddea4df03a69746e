package http

import (
	"net/http"

	"equilo/internal/auth"
	"equilo/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	User    *core.User `json:"user"`
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, pair, err := s.svc.Auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		User:    user,
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := s.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Refresh == "" {
		respondError(w, r, auth.ErrMissingToken)
		return
	}

	pair, err := s.svc.Auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.Me(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
