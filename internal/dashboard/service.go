package dashboard

import (
	"context"
	"errors"
	"time"

	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/member"
	"gymmanager/internal/metrics"
)

var ErrInvalidWindow = errors.New("days must be 3 or 7")

// MemberReader is the read side of the member store used for aggregation.
type MemberReader interface {
	ListExpiring(ctx context.Context, gymID int, now time.Time, days int) ([]member.Member, error)
	ListExpired(ctx context.Context, gymID int, now time.Time) ([]member.Member, error)
	Stats(ctx context.Context, gymID int, now time.Time) (*member.Stats, error)
}

type Service interface {
	Stats(ctx context.Context, gymID int) (*member.Stats, error)
	ExpiringSoon(ctx context.Context, gymID, days int) ([]member.View, error)
	Expired(ctx context.Context, gymID int) ([]member.View, error)
}

type service struct {
	members MemberReader
	cache   Cache
	now     lifecycle.Clock
}

// NewService builds the aggregator. cache may be nil, in which case every
// call hits the database.
func NewService(members MemberReader, cache Cache, clock lifecycle.Clock) Service {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &service{members: members, cache: cache, now: clock}
}

func (s *service) Stats(ctx context.Context, gymID int) (*member.Stats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.Get(ctx, gymID)
		if err != nil {
			logger.Warn("dashboard cache read failed", "gym_id", gymID, "error", err)
		}
		if ok {
			metrics.RecordDashboardCache(true)
			return stats, nil
		}
		metrics.RecordDashboardCache(false)
	}

	stats, err := s.members.Stats(ctx, gymID, s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, gymID, stats); err != nil {
			logger.Warn("dashboard cache write failed", "gym_id", gymID, "error", err)
		}
	}
	return stats, nil
}

func (s *service) ExpiringSoon(ctx context.Context, gymID, days int) ([]member.View, error) {
	if days != lifecycle.ExpiringSoonDays && days != lifecycle.ExpiringWeekDays {
		return nil, ErrInvalidWindow
	}

	now := s.now()
	members, err := s.members.ListExpiring(ctx, gymID, now, days)
	if err != nil {
		return nil, err
	}
	return member.NewViews(members, now), nil
}

func (s *service) Expired(ctx context.Context, gymID int) ([]member.View, error) {
	now := s.now()
	members, err := s.members.ListExpired(ctx, gymID, now)
	if err != nil {
		return nil, err
	}
	return member.NewViews(members, now), nil
}
