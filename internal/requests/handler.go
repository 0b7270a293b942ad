package requests

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hemolink/donorhub/internal/domain"
	"github.com/hemolink/donorhub/internal/pkg/httputil"
)

// Pagination constants.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Handler handles HTTP requests for the blood requests module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new blood requests handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the blood requests module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/blood-requests", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/close", h.Close)
	})
}

// CreateRequestRequest represents the request body for creating a blood request.
type CreateRequestRequest struct {
	BloodType string `json:"blood_type" validate:"required"`
	CityID    string `json:"city_id" validate:"required,uuid4"`
	Hospital  string `json:"hospital" validate:"max=255"`
	Contact   string `json:"contact" validate:"max=255"`
	Notes     string `json:"notes" validate:"max=2000"`
	Urgency   string `json:"urgency" validate:"omitempty,oneof=normal urgent"`
}

// ToDomain converts the request to a domain model.
func (r *CreateRequestRequest) ToDomain() *domain.BloodRequest {
	return &domain.BloodRequest{
		BloodType: domain.BloodType(r.BloodType),
		CityID:    r.CityID,
		Hospital:  r.Hospital,
		Contact:   r.Contact,
		Notes:     r.Notes,
		Urgency:   domain.RequestUrgency(r.Urgency),
	}
}

// Create handles POST /blood-requests request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	request := req.ToDomain()
	if err := h.service.Create(r.Context(), request); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, request)
}

// Get handles GET /blood-requests/{id} request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, detail)
}

// List handles GET /blood-requests request.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: DefaultListLimit}

	if cityID := r.URL.Query().Get("city_id"); cityID != "" {
		filter.CityID = cityID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if status != string(domain.RequestStatusOpen) && status != string(domain.RequestStatusClosed) {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter, must be 'open', 'closed', or empty")
			return
		}
		filter.Status = domain.RequestStatus(status)
	}
	if urgency := r.URL.Query().Get("urgency"); urgency != "" {
		filter.Urgency = domain.RequestUrgency(urgency)
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxListLimit {
			parsed = MaxListLimit
		}
		filter.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = parsed
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"requests": list,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// Close handles POST /blood-requests/{id}/close request.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Close(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	request, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, request)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrRequestNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidBloodType, Status: http.StatusBadRequest},
}
