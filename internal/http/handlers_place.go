package http

import (
	"net/http"

	"equilo/internal/core"
)

type createPlaceRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var req createPlaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	place, err := s.svc.Places.CreatePlace(r.Context(), userID(r), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, place)
}

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := s.svc.Places.ListPlaces(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if places == nil {
		places = []core.Place{}
	}
	writeJSON(w, http.StatusOK, places)
}

type placeDetailResponse struct {
	core.Place
	Members []core.Member `json:"members"`
}

func (s *Server) handleGetPlace(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	place, err := s.svc.Places.GetPlace(r.Context(), placeID, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	members, err := s.svc.Places.ListMembers(r.Context(), placeID, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placeDetailResponse{Place: *place, Members: members})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	members, err := s.svc.Places.ListMembers(r.Context(), placeID, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}
