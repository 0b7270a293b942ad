package campaigns

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

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

// Handler handles HTTP requests for the campaigns module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new campaigns handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the campaigns module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// CreateCampaignRequest represents the request body for creating a campaign.
type CreateCampaignRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=255"`
	Description    string     `json:"description"`
	OrganizationID string     `json:"organization_id" validate:"required,uuid4"`
	CityID         string     `json:"city_id" validate:"required,uuid4"`
	Location       string     `json:"location"`
	StartsAt       time.Time  `json:"starts_at" validate:"required"`
	EndsAt         *time.Time `json:"ends_at"`
}

// ToDomain converts the request to a domain model.
func (r *CreateCampaignRequest) ToDomain() *domain.Campaign {
	return &domain.Campaign{
		Title:          r.Title,
		Description:    r.Description,
		OrganizationID: r.OrganizationID,
		CityID:         r.CityID,
		Location:       r.Location,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
	}
}

// UpdateCampaignRequest represents the request body for updating a campaign.
type UpdateCampaignRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at"`
}

// Create handles POST /campaigns request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	campaign := req.ToDomain()
	if err := h.service.Create(r.Context(), campaign); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, campaign)
}

// Get handles GET /campaigns/{id} request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, campaign)
}

// List handles GET /campaigns request.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: DefaultListLimit}

	if cityID := r.URL.Query().Get("city_id"); cityID != "" {
		filter.CityID = cityID
	}
	if orgID := r.URL.Query().Get("organization_id"); orgID != "" {
		filter.OrganizationID = orgID
	}
	if r.URL.Query().Get("upcoming") == "true" {
		filter.Upcoming = true
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

	campaigns, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	response := map[string]interface{}{
		"campaigns": campaigns,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	}

	httputil.Success(w, http.StatusOK, response)
}

// Update handles PATCH /campaigns/{id} request.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Location = req.Location
	existing.StartsAt = req.StartsAt
	existing.EndsAt = req.EndsAt

	if err := h.service.Update(r.Context(), existing); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, existing)
}

// Delete handles DELETE /campaigns/{id} request.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrCampaignNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidSchedule, Status: http.StatusBadRequest},
}
