package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/notefeed/apiserver/internal/services"
	"github.com/notefeed/apiserver/internal/store"
	"github.com/notefeed/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AuthHandler is the token issuer: it mints access/refresh pairs at
// registration and login and exchanges valid refresh tokens for new
// access tokens.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		secret:      []byte(jwtSecret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/token/refresh", handler.Refresh)
}

// RequireAuth enforces a valid access token and injects the subject into
// the request context. Refresh tokens are rejected here; they are only
// good for the refresh endpoint.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
			return
		}

		subject, err := parseTokenSubject(tokenString, h.secret, tokenTypeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new user account and returns a token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "missing required fields")
		return
	}

	exists, err := h.userService.Exists(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to check user")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, kindConflict, "Username already exists.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: string(hashed),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create user")
		return
	}

	tokens, err := h.issueTokenPair(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create tokens")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User registered successfully.",
		Tokens:  tokens,
	})
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "missing credentials")
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, kindNotFound, "User not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid credentials.")
		return
	}

	tokens, err := h.issueTokenPair(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create tokens")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful.",
		Tokens:  tokens,
	})
}

// Refresh exchanges a valid refresh token for a new access token without
// re-authentication.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "refresh token is required")
		return
	}

	subject, err := parseTokenSubject(req.Refresh, h.secret, tokenTypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid token.")
		return
	}

	userID, err := strconv.Atoi(subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid token.")
		return
	}
	if _, err := h.userService.GetByID(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid token.")
			return
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to refresh token")
		return
	}

	access, err := issueToken(userID, h.secret, h.accessTTL, tokenTypeAccess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Access: access})
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type AuthResponse struct {
	Message string          `json:"message"`
	Tokens  types.TokenPair `json:"tokens"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type tokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (h *AuthHandler) issueTokenPair(userID int) (types.TokenPair, error) {
	access, err := issueToken(userID, h.secret, h.accessTTL, tokenTypeAccess)
	if err != nil {
		return types.TokenPair{}, err
	}
	refresh, err := issueToken(userID, h.secret, h.refreshTTL, tokenTypeRefresh)
	if err != nil {
		return types.TokenPair{}, err
	}
	return types.TokenPair{Access: access, Refresh: refresh}, nil
}

// issueToken mints a token with a random jti, so repeated issuances for
// the same user are uncorrelated.
func issueToken(userID int, secret []byte, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte, wantType string) (string, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.TokenType != wantType {
		return "", errors.New("wrong token type")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
