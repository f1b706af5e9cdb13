package api

import (
	"github.com/gorilla/mux"

	"github.com/sboruta/tracker/internal/central"
	"github.com/sboruta/tracker/internal/config"
	"github.com/sboruta/tracker/internal/syncer"
)

func SetupRoutes(cfg *config.ServerConfig, version, buildTime string, store *central.Store, presigner PresignService) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	validator, err := NewRowValidator()
	if err != nil {
		return nil, err
	}

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(store, store, cfg.JWTSecret, cfg.TokenDuration)
	syncHandler := NewSyncHandler(store, syncer.NewResolver(logger), validator, presigner)
	provisionHandler := NewProvisionHandler(store)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/admin/signup", authHandler.AdminSignup).Methods("POST")
	r.HandleFunc("/v1/auth/admin/signin", authHandler.AdminSignin).Methods("POST")
	r.HandleFunc("/v1/auth/employee/signin", authHandler.EmployeeSignin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")

	// Sync protocol endpoints
	apiV1.HandleFunc("/sync/upload", syncHandler.Upload).Methods("POST")
	apiV1.HandleFunc("/sync/download", syncHandler.Download).Methods("GET")
	apiV1.HandleFunc("/screenshots/presign", syncHandler.PresignScreenshot).Methods("POST")

	// Admin provisioning endpoints
	admin := apiV1.NewRoute().Subrouter()
	admin.Use(AdminOnlyMiddleware)
	admin.HandleFunc("/companies", provisionHandler.CreateCompany).Methods("POST")
	admin.HandleFunc("/companies", provisionHandler.ListCompanies).Methods("GET")
	admin.HandleFunc("/employees", provisionHandler.CreateEmployee).Methods("POST")
	admin.HandleFunc("/employees", provisionHandler.ListEmployees).Methods("GET")
	admin.HandleFunc("/employees/{id}", provisionHandler.DeactivateEmployee).Methods("DELETE")

	return r, nil
}
