package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/notefeed/apiserver/internal/services"
	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
)

// FollowHandler exposes the follow graph: adding and removing follow
// edges for the authenticated user.
type FollowHandler struct {
	userService   *services.UserService
	followService *services.FollowService
}

// NewFollowHandler constructs a FollowHandler with the provided dependencies.
func NewFollowHandler(userService *services.UserService, followService *services.FollowService) *FollowHandler {
	return &FollowHandler{
		userService:   userService,
		followService: followService,
	}
}

// FollowRouter registers follow routes on the given router. All routes
// require authentication.
func FollowRouter(r chi.Router, handler *FollowHandler) {
	r.Post("/add", handler.AddFollow)
	r.Post("/del", handler.RemoveFollow)
}

// AddFollow appends a follow edge from the caller to the target user and
// returns the updated follow list.
func (h *FollowHandler) AddFollow(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.parseFollowRequest(w, r)
	if !ok {
		return
	}

	follows, err := h.followService.AddFollow(r.Context(), actor, target)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, kindNotFound, "User not found.")
		case errors.Is(err, services.ErrSelfFollow):
			writeError(w, http.StatusBadRequest, kindInvalidInput, "You cannot follow yourself.")
		case errors.Is(err, store.ErrAlreadyFollowing):
			writeError(w, http.StatusConflict, kindConflict, "You are already following this user.")
		default:
			writeError(w, http.StatusInternalServerError, kindInternal, "failed to add follow")
		}
		return
	}

	writeJSON(w, http.StatusOK, FollowResponse{
		Message: fmt.Sprintf("You are now following %s.", target),
		Follows: follows,
	})
}

// RemoveFollow removes the follow edge from the caller to the target
// user and returns the updated follow list.
func (h *FollowHandler) RemoveFollow(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.parseFollowRequest(w, r)
	if !ok {
		return
	}

	follows, err := h.followService.RemoveFollow(r.Context(), actor, target)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFollowing):
			writeError(w, http.StatusConflict, kindConflict, "You are not following this user.")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
		default:
			writeError(w, http.StatusInternalServerError, kindInternal, "failed to remove follow")
		}
		return
	}

	writeJSON(w, http.StatusOK, FollowResponse{
		Message: fmt.Sprintf("You have unfollowed %s.", target),
		Follows: follows,
	})
}

func (h *FollowHandler) parseFollowRequest(w http.ResponseWriter, r *http.Request) (types.User, string, bool) {
	user, err := currentUser(r.Context(), h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
		return types.User{}, "", false
	}

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return types.User{}, "", false
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "Target username is required.")
		return types.User{}, "", false
	}

	return user, req.Username, true
}

type FollowRequest struct {
	Username string `json:"username"`
}

type FollowResponse struct {
	Message string   `json:"message"`
	Follows []string `json:"follows"`
}
