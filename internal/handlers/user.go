package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/notefeed/apiserver/internal/services"
	"github.com/notefeed/apiserver/internal/storage"
	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 4 << 20
	formFieldAvatar = "avatar"
)

// UserHandler serves the authenticated user's profile, follow list,
// notification inbox, categories, and avatar.
type UserHandler struct {
	userService     *services.UserService
	categoryService *services.CategoryService
	avatars         *storage.AvatarStore
}

// NewUserHandler constructs a UserHandler. avatars may be nil when no
// object storage is configured; the avatar routes are then not
// registered.
func NewUserHandler(userService *services.UserService, categoryService *services.CategoryService, avatars *storage.AvatarStore) *UserHandler {
	return &UserHandler{
		userService:     userService,
		categoryService: categoryService,
		avatars:         avatars,
	}
}

// UserRouter registers user routes on the given router. All routes
// require authentication.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/info", handler.Info)
	r.Get("/follows", handler.Follows)
	r.Get("/notifications", handler.Notifications)
	r.Get("/categories", handler.Categories)
	if handler.avatars != nil {
		r.Put("/avatar", handler.PutAvatar)
		r.Get("/avatar", handler.GetAvatar)
	}
}

// Info returns the caller's profile with a humanized last-publish time.
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, UserInfoResponse{
		Username:         user.Username,
		Name:             user.Name,
		ModifiedTimesAgo: humanize.Time(user.ModifiedAt),
	})
}

// Follows returns the users the caller follows, in follow order.
func (h *UserHandler) Follows(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	follows, err := h.userService.ListFollows(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to list follows")
		return
	}

	items := make([]FollowEntry, 0, len(follows))
	for _, followed := range follows {
		items = append(items, FollowEntry{
			Name:             followed.Name,
			ModifiedTimesAgo: humanize.Time(followed.ModifiedAt),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Notifications returns the caller's inbox, oldest first.
func (h *UserHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	notifications := user.Notifications
	if notifications == nil {
		notifications = []types.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// Categories returns the caller's own categories in creation order.
func (h *UserHandler) Categories(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	categories, err := h.categoryService.ListByOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to list categories")
		return
	}

	items := make([]CategoryEntry, 0, len(categories))
	for _, category := range categories {
		items = append(items, CategoryEntry{
			ID:      category.ID,
			Name:    category.Name,
			Content: category.Content,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// PutAvatar stores the caller's avatar image in object storage.
func (h *UserHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldAvatar]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "exactly one avatar file is required")
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "failed to read avatar file")
		return
	}

	data, err := readFileLimited(file, maxAvatarBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	key, err := h.avatars.Put(r.Context(), user.Username, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImageType) {
			writeError(w, http.StatusBadRequest, kindInvalidInput, "unsupported image type")
			return
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to store avatar")
		return
	}

	if err := h.userService.UpdateAvatarKey(r.Context(), user.ID, key); err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Avatar updated."})
}

// GetAvatar streams the caller's avatar image back.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if user.AvatarKey == "" {
		writeError(w, http.StatusNotFound, kindNotFound, "no avatar uploaded")
		return
	}

	reader, err := h.avatars.Open(r.Context(), user.AvatarKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to load avatar")
		return
	}
	defer reader.Close()

	_, _ = io.Copy(w, reader)
}

func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	user, err := currentUser(r.Context(), h.userService)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
			return types.User{}, false
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to load user")
		return types.User{}, false
	}
	return user, true
}

type UserInfoResponse struct {
	Username         string `json:"username"`
	Name             string `json:"name"`
	ModifiedTimesAgo string `json:"modified_times_ago"`
}

type FollowEntry struct {
	Name             string `json:"name"`
	ModifiedTimesAgo string `json:"modified_times_ago"`
}

type CategoryEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// currentUser resolves the authenticated subject to a full user record.
func currentUser(ctx context.Context, userService *services.UserService) (types.User, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return types.User{}, store.ErrNotFound
	}
	return userService.GetByID(ctx, userID)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
