package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sboruta/tracker/internal/central"
	"github.com/sboruta/tracker/pkg/models"
)

// AdminStore is the slice of the central store the auth handlers need for
// dashboard operator accounts.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a *central.Admin) error
	AdminByEmail(ctx context.Context, email string) (*central.Admin, error)
}

// EmployeeDirectory resolves employees by their natural key for sign-in.
type EmployeeDirectory interface {
	EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
}

type AuthHandler struct {
	admins        AdminStore
	employees     EmployeeDirectory
	jwtSecret     string
	tokenDuration time.Duration
}

func NewAuthHandler(admins AdminStore, employees EmployeeDirectory, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{admins: admins, employees: employees, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token      string `json:"token"`
	EmployeeID string `json:"employee_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
}

func (h *AuthHandler) AdminSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	admin := &central.Admin{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := h.admins.CreateAdmin(r.Context(), admin); err != nil {
		if errors.Is(err, central.ErrDuplicateEmail) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	tokenStr, err := h.issueToken(jwt.MapClaims{
		"sub":   admin.ID,
		"email": admin.Email,
		"role":  "admin",
	})
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(authResponse{Token: tokenStr})
}

func (h *AuthHandler) AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	admin, err := h.admins.AdminByEmail(r.Context(), req.Email)
	if err != nil || admin == nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	tokenStr, err := h.issueToken(jwt.MapClaims{
		"sub":   admin.ID,
		"email": admin.Email,
		"role":  "admin",
	})
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(authResponse{Token: tokenStr})
}

// EmployeeSignin authenticates a capture agent. The issued token carries
// the employee and company ids the sync endpoints scope their work to.
func (h *AuthHandler) EmployeeSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	emp, err := h.employees.EmployeeByEmail(r.Context(), req.Email)
	if err != nil || emp == nil || emp.Deleted() || !emp.IsActive {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	tokenStr, err := h.issueToken(jwt.MapClaims{
		"sub":         emp.ID,
		"email":       emp.Email,
		"role":        "employee",
		"employee_id": emp.ID,
		"company_id":  emp.CompanyID,
	})
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(authResponse{Token: tokenStr, EmployeeID: emp.ID, CompanyID: emp.CompanyID})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}

func (h *AuthHandler) issueToken(claims jwt.MapClaims) (string, error) {
	claims["exp"] = time.Now().Add(h.tokenDuration).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
