package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bushidonj/kanban-board/internal/sqlite"
)

type userKey struct{}

type authUser struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// userFromContext returns the authenticated user, if present.
func userFromContext(ctx context.Context) (authUser, bool) {
	user, ok := ctx.Value(userKey{}).(authUser)
	return user, ok
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	sessionToken, err := s.signSessionToken(user)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	refreshToken, err := s.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("user logged in", "email", user.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
		"sessionToken": sessionToken,
		"refreshToken": refreshToken,
		"expiresIn":    s.cfg.SessionTTL.String(),
		"message":      "login successful",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken required")
		return
	}

	stored, err := s.tokens.Get(r.Context(), input.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.tokens.Delete(r.Context(), stored.Token)
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var user *sqlite.User
	for i := range users {
		if users[i].ID == stored.UserID {
			user = &users[i]
			break
		}
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Rotate: the used token dies, a fresh one replaces it.
	if err := s.tokens.Delete(r.Context(), stored.Token); err != nil {
		s.logger.Error("failed to rotate refresh token", "error", err)
	}
	refreshToken, err := s.issueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sessionToken, err := s.signSessionToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionToken": sessionToken,
		"refreshToken": refreshToken,
		"expiresIn":    s.cfg.SessionTTL.String(),
		"message":      "token refreshed",
	})
}

// handleLogout invalidates every refresh token of the caller. Best
// effort: the client clears local state regardless of the outcome.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if ok {
		if err := s.tokens.DeleteForUser(r.Context(), user.ID); err != nil {
			s.logger.Error("logout cleanup failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) signSessionToken(user *sqlite.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.SessionTTL).Unix(),
	})

	signed, err := token.SignedString(s.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *Server) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	token := &sqlite.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTTL),
		CreatedAt: time.Now(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", err
	}
	return token.Token, nil
}

// authMiddleware enforces bearer token authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return s.cfg.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		user := authUser{
			ID:    stringClaim(claims, "sub"),
			Email: stringClaim(claims, "email"),
			Name:  stringClaim(claims, "name"),
			Role:  stringClaim(claims, "role"),
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
