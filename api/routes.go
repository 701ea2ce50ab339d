package api

import (
	"github.com/gorilla/mux"

	"github.com/garnizeh/timesheet/internal/config"
	"github.com/garnizeh/timesheet/internal/metrics"
	"github.com/garnizeh/timesheet/internal/session"
	"github.com/garnizeh/timesheet/internal/timesheet"
	"github.com/garnizeh/timesheet/pkg/repository"
)

// Deps are the collaborators the router needs. Metrics and Notifier are
// optional.
type Deps struct {
	Config    *config.Config
	Version   string
	BuildTime string
	Store     repository.Store
	Service   *timesheet.Service
	Notifier  *session.Notifier
	Metrics   *metrics.Metrics
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = session.NewNotifier()
	}

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(d.Store, d.Store, notifier, d.Config.JWTSecret, d.Config.TokenDuration)
	sessionHandler := NewSessionHandler(notifier, 0)
	profileHandler := NewProfileHandler(d.Service)
	jobsHandler := NewJobsHandler(d.Service)
	shiftsHandler := NewShiftsHandler(d.Service)
	reportsHandler := NewReportsHandler(d.Service)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(d.Config.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")
	authV1.HandleFunc("/me", authHandler.Me).Methods("GET")

	apiV1.HandleFunc("/session/events", sessionHandler.Events).Methods("GET")

	apiV1.HandleFunc("/profile", profileHandler.Get).Methods("GET")
	apiV1.HandleFunc("/profile", profileHandler.Put).Methods("PUT")

	apiV1.HandleFunc("/jobs", jobsHandler.List).Methods("GET")
	apiV1.HandleFunc("/jobs", jobsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.Rename).Methods("PUT")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.Delete).Methods("DELETE")

	apiV1.HandleFunc("/shifts", shiftsHandler.Month).Methods("GET")
	apiV1.HandleFunc("/shifts", shiftsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/shifts/{id:[0-9]+}", shiftsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/shifts/{id:[0-9]+}", shiftsHandler.Update).Methods("PUT")
	apiV1.HandleFunc("/shifts/{id:[0-9]+}", shiftsHandler.Delete).Methods("DELETE")
	apiV1.HandleFunc("/calendar", shiftsHandler.Calendar).Methods("GET")

	apiV1.HandleFunc("/reports", reportsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/reports/exports", reportsHandler.CreateExport).Methods("POST")
	apiV1.HandleFunc("/reports/exports/{id:[0-9]+}", reportsHandler.ExportStatus).Methods("GET")
	apiV1.HandleFunc("/reports/exports/{id:[0-9]+}/download", reportsHandler.DownloadExport).Methods("GET")

	return r
}
