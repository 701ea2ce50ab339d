package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/timesheet/internal/models"
	"github.com/garnizeh/timesheet/internal/session"
	"github.com/garnizeh/timesheet/internal/timesheet"
	"github.com/garnizeh/timesheet/pkg/repository/mock"
)

type tokenBody struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

func checkToken(t *testing.T, tok string, wantUser int64) {
	t.Helper()
	parsed, err := jwt.Parse(tok, func(token *jwt.Token) (any, error) { return []byte(testSecret), nil })
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if id, ok := claims["user_id"].(float64); !ok || int64(id) != wantUser {
		t.Fatalf("unexpected user_id claim %v", claims["user_id"])
	}
	if _, ok := claims["email"]; !ok {
		t.Fatalf("missing email claim")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		t.Fatalf("invalid exp claim")
	}
}

func TestAuthHandlers(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		body       any
		prepare    func(s *mock.Store)
		wantStatus int
		wantEvent  session.Kind
	}{
		{name: "Signup_InvalidRequest", path: "/v1/auth/signup", body: "not a json", wantStatus: http.StatusBadRequest},
		{name: "Signup_MissingEmail", path: "/v1/auth/signup", body: map[string]string{"password": "s3cret1"}, wantStatus: http.StatusBadRequest},
		{name: "Signup_MissingPassword", path: "/v1/auth/signup", body: map[string]string{"email": "alice@example.com"}, wantStatus: http.StatusBadRequest},
		{name: "Signup_ShortPassword", path: "/v1/auth/signup", body: map[string]string{"email": "alice@example.com", "password": "12345"}, wantStatus: http.StatusBadRequest},
		{name: "Signup_BadEmail", path: "/v1/auth/signup", body: map[string]string{"email": "alice", "password": "s3cret1"}, wantStatus: http.StatusBadRequest},
		{
			name:       "Signup_Success",
			path:       "/v1/auth/signup",
			body:       map[string]string{"email": "Alice@Example.com", "password": "s3cret1", "given_name": "Alice", "family_name": "Rossi"},
			wantStatus: http.StatusCreated,
			wantEvent:  session.SignedUp,
		},
		{
			name: "Signup_DuplicateEmail",
			path: "/v1/auth/signup",
			body: map[string]string{"email": "dup@example.com", "password": "s3cret1"},
			prepare: func(s *mock.Store) {
				_, _ = s.CreateUser(t.Context(), &models.User{Email: "dup@example.com", PasswordHash: "x"})
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "Signup_StoreError",
			path:       "/v1/auth/signup",
			body:       map[string]string{"email": "err@example.com", "password": "s3cret1"},
			prepare:    func(s *mock.Store) { s.Err = errors.New("disk full") },
			wantStatus: http.StatusInternalServerError,
		},
		{name: "Signin_InvalidRequest", path: "/v1/auth/signin", body: "not a json", wantStatus: http.StatusBadRequest},
		{name: "Signin_MissingPassword", path: "/v1/auth/signin", body: map[string]string{"email": "bob@example.com"}, wantStatus: http.StatusBadRequest},
		{name: "Signin_MissingUser", path: "/v1/auth/signin", body: map[string]string{"email": "missing@example.com", "password": "nop"}, wantStatus: http.StatusUnauthorized},
		{
			name: "Signin_Success",
			path: "/v1/auth/signin",
			body: map[string]string{"email": "BOB@example.com", "password": "hunter2"},
			prepare: func(s *mock.Store) {
				_, _ = s.CreateUser(t.Context(), &models.User{Email: "bob@example.com", PasswordHash: string(hash)})
			},
			wantStatus: http.StatusOK,
			wantEvent:  session.SignedIn,
		},
		{
			name: "Signin_WrongPassword",
			path: "/v1/auth/signin",
			body: map[string]string{"email": "bob@example.com", "password": "wrongpw"},
			prepare: func(s *mock.Store) {
				_, _ = s.CreateUser(t.Context(), &models.User{Email: "bob@example.com", PasswordHash: string(hash)})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, timesheet.Options{})
			if tt.prepare != nil {
				tt.prepare(e.store)
			}
			var events []session.Event
			defer e.notifier.Subscribe(func(ev session.Event) { events = append(events, ev) })()

			w := e.do(t, http.MethodPost, tt.path, "", tt.body)
			wantStatus(t, w, tt.wantStatus)

			if tt.wantEvent == "" {
				if len(events) != 0 {
					t.Fatalf("unexpected events %+v", events)
				}
				return
			}
			body := decode[tokenBody](t, w)
			checkToken(t, body.Token, body.UserID)
			if len(events) != 1 || events[0].Kind != tt.wantEvent || events[0].UserID != body.UserID {
				t.Fatalf("expected one %s event for user %d, got %+v", tt.wantEvent, body.UserID, events)
			}
		})
	}
}

func TestSignupCreatesProfile(t *testing.T) {
	e := newEnv(t, timesheet.Options{})
	w := e.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "carla@example.com", "password": "s3cret1", "given_name": " Carla ", "family_name": "Bianchi",
	})
	wantStatus(t, w, http.StatusCreated)
	tok := decode[tokenBody](t, w)

	w = e.do(t, http.MethodGet, "/v1/auth/me", tok.Token, nil)
	wantStatus(t, w, http.StatusOK)
	me := decode[map[string]any](t, w)
	if me["email"] != "carla@example.com" || me["given_name"] != "Carla" || me["family_name"] != "Bianchi" {
		t.Fatalf("unexpected me %+v", me)
	}
}

// profileFailStore saves users but never profiles.
type profileFailStore struct {
	*mock.Store
}

func (profileFailStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	return errors.New("profiles table locked")
}

func TestSignup_ProfileFailureKeepsAccount(t *testing.T) {
	store := mock.NewStore()
	e := newEnvWith(t, store, profileFailStore{store}, timesheet.Options{})
	creds := map[string]string{"email": "elena@example.com", "password": "s3cret1", "given_name": "Elena"}

	w := e.do(t, http.MethodPost, "/v1/auth/signup", "", creds)
	wantStatus(t, w, http.StatusCreated)
	body := decode[tokenBody](t, w)
	checkToken(t, body.Token, body.UserID)

	// the account is usable right away
	w = e.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": creds["email"], "password": creds["password"]})
	wantStatus(t, w, http.StatusOK)

	w = e.do(t, http.MethodGet, "/v1/auth/me", body.Token, nil)
	wantStatus(t, w, http.StatusOK)
	me := decode[map[string]any](t, w)
	if me["email"] != "elena@example.com" || me["given_name"] != "" || me["family_name"] != "" {
		t.Fatalf("expected an empty profile, got %+v", me)
	}

	// retrying the signup reports the existing account
	wantStatus(t, e.do(t, http.MethodPost, "/v1/auth/signup", "", creds), http.StatusConflict)
}

func TestSignout(t *testing.T) {
	e := newEnv(t, timesheet.Options{})
	id, tok := e.addUser(t, "dan@example.com")

	var got []session.Event
	defer e.notifier.Subscribe(func(ev session.Event) { got = append(got, ev) })()

	wantStatus(t, e.do(t, http.MethodPost, "/v1/auth/signout", "", nil), http.StatusUnauthorized)
	w := e.do(t, http.MethodPost, "/v1/auth/signout", tok, nil)
	wantStatus(t, w, http.StatusOK)
	if len(got) != 1 || got[0].Kind != session.SignedOut || got[0].UserID != id || got[0].Email != "dan@example.com" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestMe_UnknownUser(t *testing.T) {
	e := newEnv(t, timesheet.Options{})
	wantStatus(t, e.do(t, http.MethodGet, "/v1/auth/me", signToken(t, 99, "ghost@example.com"), nil), http.StatusUnauthorized)
}
