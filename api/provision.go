package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/sboruta/tracker/pkg/models"
)

// ProvisionStore is the slice of the central store the admin provisioning
// handlers need. Upsert stamps last_modified, so every provisioning change
// reaches agents on their next download.
type ProvisionStore interface {
	Upsert(ctx context.Context, table models.Table, row models.Row) error
	GetByID(ctx context.Context, table models.Table, id string) (models.Row, error)
	GetByKey(ctx context.Context, table models.Table, key string) (models.Row, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	ListByCompany(ctx context.Context, companyID string) ([]*models.Employee, error)
}

type ProvisionHandler struct {
	store ProvisionStore
}

func NewProvisionHandler(store ProvisionStore) *ProvisionHandler {
	return &ProvisionHandler{store: store}
}

type createCompanyRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func (h *ProvisionHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Domain == "" {
		http.Error(w, "missing fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.store.GetByKey(ctx, models.Companies, req.Domain)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "domain already registered", http.StatusConflict)
		return
	}

	company := &models.Company{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Domain: req.Domain,
	}
	if err := h.store.Upsert(ctx, models.Companies, company); err != nil {
		logger.Error("create company failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(company)
}

func (h *ProvisionHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if companies == nil {
		companies = []*models.Company{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"companies": companies})
}

type createEmployeeRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

func (h *ProvisionHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.CompanyID == "" {
		http.Error(w, "missing fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.store.GetByKey(ctx, models.Employees, req.Email)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	emp := &models.Employee{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CompanyID:    req.CompanyID,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.store.Upsert(ctx, models.Employees, emp); err != nil {
		logger.Error("create employee failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := *emp
	out.PasswordHash = ""
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&out)
}

func (h *ProvisionHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id required", http.StatusBadRequest)
		return
	}

	employees, err := h.store.ListByCompany(r.Context(), companyID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]*models.Employee, 0, len(employees))
	for _, e := range employees {
		c := *e
		c.PasswordHash = ""
		out = append(out, &c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"employees": out})
}

// DeactivateEmployee tombstones an employee. The tombstone syncs to the
// agent on its next cycle, which stops new sessions for that identity.
func (h *ProvisionHandler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx := r.Context()
	row, err := h.store.GetByID(ctx, models.Employees, id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if row == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	emp := row.(*models.Employee)
	now := time.Now().UnixMilli()
	emp.DeletedAt = &now
	emp.IsActive = false
	if err := h.store.Upsert(ctx, models.Employees, emp); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
