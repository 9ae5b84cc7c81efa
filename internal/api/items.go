package api

import (
	"net/http"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/service"
)

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type statusRequest struct {
	Status models.ItemStatus `json:"status"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// itemPath reads the wishlist and item ids of an item route
func (s *Server) itemPath(w http.ResponseWriter, r *http.Request) (wishlistID, itemID int64, ok bool) {
	if wishlistID, ok = s.pathID(w, r, "id"); !ok {
		return 0, 0, false
	}
	if itemID, ok = s.pathID(w, r, "itemID"); !ok {
		return 0, 0, false
	}
	return wishlistID, itemID, true
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	wishlistID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	items, err := s.svc.ListItems(r.Context(), currentUser(r).ID, wishlistID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.ItemInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.CreateItem(r.Context(), currentUser(r).ID, wishlistID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}

	item, err := s.svc.GetItem(r.Context(), currentUser(r).ID, wishlistID, itemID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}
	var req service.ItemInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.UpdateItem(r.Context(), currentUser(r).ID, wishlistID, itemID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteItem(r.Context(), currentUser(r).ID, wishlistID, itemID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClaimItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}

	item, err := s.svc.ClaimItem(r.Context(), currentUser(r).ID, wishlistID, itemID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUnclaimItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}

	item, err := s.svc.UnclaimItem(r.Context(), currentUser(r).ID, wishlistID, itemID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.SetItemStatus(r.Context(), currentUser(r).ID, wishlistID, itemID, req.Status)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

// ---------------------------------------------------------------------------
// Comments & reactions
// ---------------------------------------------------------------------------

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	comment, err := s.svc.AddComment(r.Context(), currentUser(r).ID, wishlistID, itemID, req.Text)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}
	commentID, ok := s.pathID(w, r, "commentID")
	if !ok {
		return
	}

	if err := s.svc.DeleteComment(r.Context(), currentUser(r).ID, wishlistID, itemID, commentID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsertReaction(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}
	var req reactionRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	reaction, err := s.svc.UpsertReaction(r.Context(), currentUser(r).ID, wishlistID, itemID, req.Emoji)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, reaction)
}

func (s *Server) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	wishlistID, itemID, ok := s.itemPath(w, r)
	if !ok {
		return
	}

	if err := s.svc.RemoveReaction(r.Context(), currentUser(r).ID, wishlistID, itemID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
