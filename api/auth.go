package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/internal/session"
	"github.com/garnizeh/timesheet/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	profileRepo   repository.ProfileRepo
	notifier      *session.Notifier
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies. A nil
// notifier disables session events.
func NewAuthHandler(ur repository.UserRepo, pr repository.ProfileRepo, n *session.Notifier, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, profileRepo: pr, notifier: n, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
}

type meResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (h *AuthHandler) issueToken(userID int64, email string) (authResponse, error) {
	exp := time.Now().Add(h.tokenDuration).UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     exp.Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return authResponse{}, err
	}
	return authResponse{Token: tokenStr, ExpiresAt: exp.Truncate(time.Second), UserID: userID}, nil
}

func (h *AuthHandler) publish(kind session.Kind, userID int64, email string) {
	if h.notifier != nil {
		h.notifier.Publish(session.Event{Kind: kind, UserID: userID, Email: email})
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeValid(w, r, "signup", &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	userID, err := h.userRepo.CreateUser(ctx, &models.User{Email: email, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, "email already registered", http.StatusConflict)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	profile := models.Profile{
		UserID:     userID,
		GivenName:  strings.TrimSpace(req.GivenName),
		FamilyName: strings.TrimSpace(req.FamilyName),
	}
	// the account already exists, so a missing profile must not fail the
	// signup; profiles read back empty until the user saves one
	if err := h.profileRepo.UpsertProfile(ctx, &profile); err != nil {
		logger.Warn("signup profile not saved",
			slog.Int64("user_id", userID),
			slog.Any("err", err),
			slog.String("request_id", RequestIDFromContext(ctx)),
		)
	}

	resp, err := h.issueToken(userID, email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.publish(session.SignedUp, userID, email)
	writeJSON(w, resp, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeValid(w, r, "signin", &req) {
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	resp, err := h.issueToken(user.ID, user.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.publish(session.SignedIn, user.ID, user.Email)
	writeJSON(w, resp, http.StatusOK)
}

// Signout only publishes the event: tokens are stateless and the client
// discards its copy.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	email, _ := r.Context().Value(CtxEmail).(string)
	h.publish(session.SignedOut, userID, email)
	logger.Debug("signed out", slog.Int64("user_id", userID))
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	user, err := h.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, "unknown user", http.StatusUnauthorized)
		return
	}
	resp := meResponse{ID: user.ID, Email: user.Email}
	p, err := h.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if p != nil {
		resp.GivenName, resp.FamilyName = p.GivenName, p.FamilyName
	}
	writeJSON(w, resp, http.StatusOK)
}
