package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rideback/backend/internal/domain"
	"github.com/rideback/backend/internal/metrics"
)

// DefaultMatchWindow is how long after the drop time a return pickup
// may start.
const DefaultMatchWindow = 90 * time.Minute

// MatchService finds active rides heading back in the opposite
// direction of a completed ride.
type MatchService struct {
	repo   DataRepository
	window time.Duration
}

// NewMatchService creates a new match service. window <= 0 selects the
// default 90 minutes.
func NewMatchService(repo DataRepository, window time.Duration) *MatchService {
	if window <= 0 {
		window = DefaultMatchWindow
	}
	return &MatchService{repo: repo, window: window}
}

// Window returns the configured match window.
func (s *MatchService) Window() time.Duration {
	return s.window
}

// FindReturnMatch looks for an active ride from the completed ride's
// drop zone back to its pickup zone, starting within the window after
// dropTime. The earliest pickup wins; nil means no match.
func (s *MatchService) FindReturnMatch(ctx context.Context, pickupZone, dropZone int, dropTime time.Time) (*domain.ReturnMatch, error) {
	metrics.MatchLookups.Inc()

	rides, err := s.repo.ListRidesBetween(ctx, dropZone, pickupZone, dropTime, dropTime.Add(s.window))
	if err != nil {
		return nil, fmt.Errorf("match: query rides: %w", err)
	}
	if len(rides) == 0 {
		return nil, nil
	}
	best := rides[0]

	match := &domain.ReturnMatch{
		PickupZoneID: best.PickupZone,
		DropZoneID:   best.DropZone,
		PickupTime:   best.PickupTime,
		Passengers:   best.Passengers,
	}
	// Zone names are display-only; a missing catalog row does not void
	// the match.
	if z, err := s.repo.GetZone(ctx, best.PickupZone); err == nil {
		match.PickupZone = z.Name
	}
	if z, err := s.repo.GetZone(ctx, best.DropZone); err == nil {
		match.DropZone = z.Name
	}

	metrics.MatchesFound.Inc()
	return match, nil
}
