package api

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/domain"
	"bloodlink/internal/lifecycle"
)

// AlertHandler handles HTTP requests for alert lifecycle operations.
type AlertHandler struct {
	service *lifecycle.Service
	logger  *slog.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(service *lifecycle.Service, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// createAlertRequest is the JSON body for alert creation. The requester
// comes from the identity header, never the body.
type createAlertRequest struct {
	FacilityID  string           `json:"facility_id"`
	BloodType   string           `json:"blood_type"`
	Urgency     string           `json:"urgency"`
	Quantity    int              `json:"quantity"`
	Description string           `json:"description"`
	Origin      *domain.Location `json:"origin"`
	RadiusKm    float64          `json:"radius_km"`
}

// Create handles POST /v1/alerts
// Validates the request, creates an active alert and fans the initial
// notification out to matching donors.
func (h *AlertHandler) Create(c *fiber.Ctx) error {
	requesterID := actorID(c)
	if requesterID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	var req createAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "invalid request body")
	}

	result, err := h.service.Create(c.Context(), domain.NewAlertInput{
		RequesterID: requesterID,
		FacilityID:  req.FacilityID,
		BloodType:   domain.BloodType(req.BloodType),
		Urgency:     domain.Urgency(req.Urgency),
		Quantity:    req.Quantity,
		Description: req.Description,
		Origin:      req.Origin,
		RadiusKm:    req.RadiusKm,
	})
	if err != nil {
		h.logger.Error("failed to create alert", "requesterID", requesterID, "error", err)
		return DomainError(c, err, "failed to create alert")
	}

	return Created(c, result)
}

// List handles GET /v1/alerts
// Returns alerts matching query parameters, newest first.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	filter := domain.AlertFilter{
		RequesterID: c.Query("requester_id"),
		FacilityID:  c.Query("facility_id"),
	}
	if bloodType := c.Query("blood_type"); bloodType != "" {
		filter.BloodType = domain.BloodType(bloodType)
	}
	if status := c.Query("status"); status != "" {
		filter.Status = domain.AlertStatus(status)
	}
	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if filter.Limit == 0 {
		filter.Limit = 100
	}

	alerts, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		return InternalError(c, "failed to list alerts")
	}

	return Success(c, alerts)
}

// Nearby handles GET /v1/alerts/nearby
// Returns active alerts near a location, most urgent first.
func (h *AlertHandler) Nearby(c *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lonErr != nil {
		return BadRequest(c, "latitude and longitude query parameters are required")
	}

	maxDistance := 0.0
	if d := c.Query("max_distance_km"); d != "" {
		parsed, err := strconv.ParseFloat(d, 64)
		if err != nil || parsed <= 0 {
			return BadRequest(c, "max_distance_km must be a positive number")
		}
		maxDistance = parsed
	}

	alerts, err := h.service.Nearby(c.Context(), domain.Location{Latitude: lat, Longitude: lon}, maxDistance)
	if err != nil {
		h.logger.Error("failed to list nearby alerts", "error", err)
		return DomainError(c, err, "failed to list nearby alerts")
	}

	return Success(c, alerts)
}

// GetByID handles GET /v1/alerts/:id
func (h *AlertHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")

	alert, err := h.service.Get(c.Context(), id)
	if err != nil {
		h.logger.Error("failed to get alert", "alertID", id, "error", err)
		return DomainError(c, err, "failed to get alert")
	}

	return Success(c, alert)
}

// respondRequest is the JSON body for a donor response.
type respondRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Respond handles POST /v1/alerts/:id/responses
// Records or overwrites the calling donor's decision.
func (h *AlertHandler) Respond(c *fiber.Ctx) error {
	donorID := actorID(c)
	if donorID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	var req respondRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "invalid request body")
	}

	alertID := c.Params("id")
	alert, err := h.service.RecordResponse(c.Context(), alertID, donorID, domain.ResponseStatus(req.Status), req.Message)
	if err != nil {
		h.logger.Error("failed to record response", "alertID", alertID, "donorID", donorID, "error", err)
		return DomainError(c, err, "failed to record response")
	}

	return Success(c, alert)
}

// Cancel handles POST /v1/alerts/:id/cancel
func (h *AlertHandler) Cancel(c *fiber.Ctx) error {
	callerID := actorID(c)
	if callerID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	alertID := c.Params("id")
	alert, err := h.service.Cancel(c.Context(), alertID, callerID)
	if err != nil {
		h.logger.Error("failed to cancel alert", "alertID", alertID, "error", err)
		return DomainError(c, err, "failed to cancel alert")
	}

	return Success(c, alert)
}

// Fulfill handles POST /v1/alerts/:id/fulfill
func (h *AlertHandler) Fulfill(c *fiber.Ctx) error {
	callerID := actorID(c)
	if callerID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	alertID := c.Params("id")
	alert, err := h.service.Fulfill(c.Context(), alertID, callerID)
	if err != nil {
		h.logger.Error("failed to fulfill alert", "alertID", alertID, "error", err)
		return DomainError(c, err, "failed to fulfill alert")
	}

	return Success(c, alert)
}

// Propagate handles POST /v1/alerts/:id/propagate
// Offers the alert to the nearest eligible facilities.
func (h *AlertHandler) Propagate(c *fiber.Ctx) error {
	facilityID := actorID(c)
	if facilityID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	alertID := c.Params("id")
	result, err := h.service.Propagate(c.Context(), alertID, facilityID)
	if err != nil {
		h.logger.Error("failed to propagate alert", "alertID", alertID, "facilityID", facilityID, "error", err)
		return DomainError(c, err, "failed to propagate alert")
	}

	return Success(c, result)
}

// NotifyDonors handles POST /v1/alerts/:id/notify-donors
// Re-runs donor matching and dispatch on behalf of an involved facility.
func (h *AlertHandler) NotifyDonors(c *fiber.Ctx) error {
	facilityID := actorID(c)
	if facilityID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	alertID := c.Params("id")
	summary, err := h.service.NotifyDonors(c.Context(), alertID, facilityID)
	if err != nil {
		h.logger.Error("failed to notify donors", "alertID", alertID, "facilityID", facilityID, "error", err)
		return DomainError(c, err, "failed to notify donors")
	}

	return Success(c, summary)
}
