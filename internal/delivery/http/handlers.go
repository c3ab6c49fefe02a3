package http

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rideback/backend/internal/domain"
	"github.com/rideback/backend/internal/metrics"
	"github.com/rideback/backend/internal/service"
)

// suggestionCount is how many zones a complete-ride response suggests
// when no return match exists.
const suggestionCount = 3

// Handler contains all HTTP handlers
type Handler struct {
	repo        service.DataRepository
	matchSvc    *service.MatchService
	demandSvc   *service.DemandService
	trainingSvc *service.TrainingService
}

// NewHandler creates a new handler
func NewHandler(repo service.DataRepository, matchSvc *service.MatchService, demandSvc *service.DemandService, trainingSvc *service.TrainingService) *Handler {
	return &Handler{
		repo:        repo,
		matchSvc:    matchSvc,
		demandSvc:   demandSvc,
		trainingSvc: trainingSvc,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	storeStatus := "connected"
	status := "healthy"
	if err := h.repo.Health(c.Context()); err != nil {
		storeStatus = "error"
		status = "degraded"
	}

	modelStatus := "loaded"
	if !h.demandSvc.ModelLoaded() {
		modelStatus = "not loaded"
		status = "degraded"
	}

	// A missing cache is a normal deployment mode, not degradation.
	cacheStatus := "connected"
	if !h.demandSvc.CacheAvailable() {
		cacheStatus = "disabled"
	}

	tripCount, err := h.repo.CountTrips(c.Context())
	if err != nil {
		tripCount = -1
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "rideback-backend",
		"components": fiber.Map{
			"store": storeStatus,
			"model": modelStatus,
			"cache": cacheStatus,
		},
		"trip_log_size": tripCount,
		"timestamp":     time.Now().UTC(),
	})
}

// ListZones returns the zone catalog
func (h *Handler) ListZones(c *fiber.Ctx) error {
	zones, err := h.repo.ListZones(c.Context())
	if err != nil {
		log.Printf("failed to list zones: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch zones")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    zones,
		"count":   len(zones),
	})
}

// completeRideRequest is the POST /complete_ride payload. Times are
// ISO-8601 strings so a malformed value can be reported as a 400.
type completeRideRequest struct {
	CabID      string `json:"cab_id"`
	PickupZone int    `json:"pickup_zone_id"`
	DropZone   int    `json:"drop_zone_id"`
	PickupTime string `json:"pickup_time"`
	DropTime   string `json:"drop_time"`
	Passengers int    `json:"no_of_passengers"`
}

// CompleteRide records a finished ride and answers with either a
// return-trip match or the top predicted-demand zones near the drop.
func (h *Handler) CompleteRide(c *fiber.Ctx) error {
	ctx := c.Context()

	var req completeRideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.CabID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required field: cab_id")
	}
	if req.PickupZone == 0 || req.DropZone == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields: pickup_zone_id, drop_zone_id")
	}
	if req.PickupZone == req.DropZone {
		return fiber.NewError(fiber.StatusBadRequest, "Pickup and drop zones cannot be the same")
	}
	if req.DropTime == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required field: drop_time")
	}

	dropTime, err := time.Parse(time.RFC3339, req.DropTime)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid drop_time format. Use ISO format (YYYY-MM-DDTHH:MM:SSZ)")
	}
	pickupTime := dropTime
	if req.PickupTime != "" {
		pickupTime, err = time.Parse(time.RFC3339, req.PickupTime)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid pickup_time format. Use ISO format (YYYY-MM-DDTHH:MM:SSZ)")
		}
	}

	if _, err := h.repo.GetZone(ctx, req.PickupZone); errors.Is(err, domain.ErrZoneNotFound) {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown pickup zone")
	}
	if _, err := h.repo.GetZone(ctx, req.DropZone); errors.Is(err, domain.ErrZoneNotFound) {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown drop zone")
	}

	passengers := req.Passengers
	if passengers <= 0 {
		passengers = 1
	}

	// Append the completed ride to the trip log asynchronously; a slow
	// or failing store must not block the suggestion response.
	trip := domain.Trip{
		PickupTime:  pickupTime,
		DropoffTime: &dropTime,
		PickupZone:  req.PickupZone,
		DropZone:    req.DropZone,
		Passengers:  passengers,
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.InsertTrip(bgCtx, trip); err != nil {
			log.Printf("failed to append completed ride to trip log: %v", err)
		}
	}()
	metrics.RidesCompleted.Inc()

	match, err := h.matchSvc.FindReturnMatch(ctx, req.PickupZone, req.DropZone, dropTime)
	if err != nil {
		log.Printf("return match lookup failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to search for return matches")
	}
	if match != nil {
		return c.JSON(fiber.Map{
			"status":       "match found",
			"ride_details": match,
		})
	}

	recs, err := h.demandSvc.RankZones(ctx, req.DropZone, dropTime, suggestionCount)
	if err != nil {
		log.Printf("zone ranking failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to predict demand")
	}

	return c.JSON(fiber.Map{
		"status":          "no match found",
		"suggested_zones": recs,
	})
}

// Recommendations returns the top-k ranked zones for a reference zone
// and timestamp.
func (h *Handler) Recommendations(c *fiber.Ctx) error {
	zoneID := c.QueryInt("zone_id", 0)
	if zoneID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required query parameter: zone_id")
	}
	if _, err := h.repo.GetZone(c.Context(), zoneID); errors.Is(err, domain.ErrZoneNotFound) {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown zone_id")
	}

	k := c.QueryInt("k", 5)
	if k < 1 || k > 50 {
		k = 5
	}

	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid at format. Use ISO format (YYYY-MM-DDTHH:MM:SSZ)")
		}
		at = parsed
	}

	recs, err := h.demandSvc.RankZones(c.Context(), zoneID, at, k)
	if err != nil {
		log.Printf("zone ranking failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to rank zones")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recs,
		"count":   len(recs),
	})
}

// Train triggers an on-demand training run
func (h *Handler) Train(c *fiber.Ctx) error {
	m, err := h.trainingSvc.Train(c.Context())
	if errors.Is(err, service.ErrNoTrainingData) {
		return fiber.NewError(fiber.StatusBadRequest, "Trip log is empty, nothing to train on")
	}
	if err != nil {
		log.Printf("training failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Training failed")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"trained_at": m.TrainedAt,
		"zones":      m.Encoding.Len(),
		"metrics":    m.Metrics,
	})
}
