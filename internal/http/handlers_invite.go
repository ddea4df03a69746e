package http

import (
	"net/http"

	"equilo/internal/core"
)

type createInviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req createInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	invite, err := s.svc.Invites.CreateInvite(r.Context(), placeID, userID(r), req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	invites, err := s.svc.Invites.ListInvites(r.Context(), placeID, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if invites == nil {
		invites = []core.Invite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inviteID, err := pathID(r, "iid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Invites.RevokeInvite(r.Context(), placeID, userID(r), inviteID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// invitePreviewResponse is the unauthenticated view of an invite shown
// before joining. The token itself is the capability, so no extra data
// leaks here.
type invitePreviewResponse struct {
	PlaceName string `json:"place_name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}

func (s *Server) handleInvitePreview(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	invite, err := s.svc.Invites.GetByToken(r.Context(), token)
	if err != nil {
		respondError(w, r, err)
		return
	}
	place, err := s.svc.Invites.PlaceOf(r.Context(), invite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, invitePreviewResponse{
		PlaceName: place.Name,
		Email:     invite.Email,
		Status:    invite.Status,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	place, err := s.svc.Invites.Join(r.Context(), token, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}
