package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/repository"
)

// GuideResolver picks the guide attached to a booking
type GuideResolver struct{}

// NewGuideResolver creates a guide resolver
func NewGuideResolver() *GuideResolver {
	return &GuideResolver{}
}

// Resolve returns the explicit guide if one was given, otherwise the session's
// primary guide. A nil guide with nil error means no guide is attached.
// Any reference that is present must name an active guide on the trail roster.
func (r *GuideResolver) Resolve(
	ctx context.Context,
	guides repository.GuideRepository,
	trailID string,
	explicit *string,
	session *domain.TrailSession,
) (*domain.Guide, error) {
	ref := explicit
	if ref == nil && session != nil {
		ref = session.PrimaryGuideID
	}
	if ref == nil || *ref == "" {
		return nil, nil
	}

	guide, err := guides.GetByID(ctx, *ref)
	if err != nil {
		if errors.Is(err, domain.ErrGuideNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGuideNotFound, *ref)
		}
		return nil, err
	}
	if !guide.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrGuideInactive, guide.ID)
	}
	if !guide.CanLead(trailID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrGuideNotAuthorized, guide.ID)
	}

	return guide, nil
}
