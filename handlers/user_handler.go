package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"lingo-server/middleware"
	"lingo-server/services"
	"lingo-server/utils/errors"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetRecommendedUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	users, err := h.userService.GetRecommendedUsers(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetMyFriends(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	friends, err := h.userService.GetMyFriends(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, friends)
}

func (h *UserHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}
	receiver := mux.Vars(r)["id"]
	if receiver == identity.ID {
		middleware.WriteError(w, r, errors.ErrSelfRequest)
		return
	}

	result, err := h.userService.SendFriendRequest(r.Context(), receiver, identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	// A duplicate in either direction is an informational no-op, not a
	// conflict.
	if result.Created == nil {
		middleware.WriteJSON(w, http.StatusCreated, map[string]any{
			"message":      "A friend request already exist",
			"requestExist": result.Existing,
		})
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, result.Created)
}

func (h *UserHandler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	message, err := h.userService.AcceptFriendRequest(r.Context(), identity.ID, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"message": message})
}

func (h *UserHandler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	message, err := h.userService.RejectFriendRequest(r.Context(), identity.ID, mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *UserHandler) GetFriendRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	inbox, err := h.userService.GetFriendRequests(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, inbox)
}

func (h *UserHandler) GetOutgoingFriendRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	outgoing, err := h.userService.GetOutgoingFriendRequests(r.Context(), identity.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, outgoing)
}

// GetUser returns a single profile. Public route.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}
