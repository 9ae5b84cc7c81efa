package api

import (
	"net/http"

	"github.com/Kerhoff/WishShare/internal/service"
)

// ---------------------------------------------------------------------------
// Wishlists
// ---------------------------------------------------------------------------

func (s *Server) handleListWishlists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.ListWishlists(r.Context(), currentUser(r).ID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lists)
}

func (s *Server) handleCreateWishlist(w http.ResponseWriter, r *http.Request) {
	var req service.WishlistInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.svc.CreateWishlist(r.Context(), currentUser(r).ID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, list)
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	list, err := s.svc.GetWishlist(r.Context(), currentUser(r).ID, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.WishlistInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.svc.UpdateWishlist(r.Context(), currentUser(r).ID, id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteWishlist(r.Context(), currentUser(r).ID, id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInviteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.InviteInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.svc.InviteMember(r.Context(), currentUser(r).ID, id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := s.svc.RemoveMember(r.Context(), currentUser(r).ID, id, memberID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
