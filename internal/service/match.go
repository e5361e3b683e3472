package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

// Score weights.
const (
	InterestAreaPoints = 40
	FlexiblePoints     = 30
	SchedulePoints     = 20
	CommitmentPoints   = 15
	MaxScore           = 100
)

const (
	CriterionInterestArea = "Interest Area"
	CriterionSchedule     = "Schedule"
)

const (
	DefaultRecommendationLimit = 10
	DefaultMatchLimit          = 20
	MaxRankLimit               = 100
	// CandidatePoolSize is how many recent opportunities are ranked when
	// the query cannot be narrowed by interest area.
	CandidatePoolSize = 100
)

// Match is one ranked opportunity. Score and MatchingCriteria are empty for
// unpersonalized results.
type Match struct {
	Opportunity      model.Opportunity `json:"opportunity"`
	Score            int               `json:"score,omitempty"`
	MatchingCriteria []string          `json:"matchingCriteria,omitempty"`
}

// Ranking is false-Personalized when the user has no preferences and the
// matches are simply the most recent opportunities.
type Ranking struct {
	Personalized bool    `json:"personalized"`
	Matches      []Match `json:"matches"`
}

// Score rates opp against prefs on a 0..100 scale. It is pure.
func Score(prefs *model.Preferences, opp *model.Opportunity) int {
	score, _ := scoreWithCriteria(prefs, opp)
	return score
}

func scoreWithCriteria(prefs *model.Preferences, opp *model.Opportunity) (int, []string) {
	if prefs == nil || opp == nil {
		return 0, nil
	}

	var (
		score    int
		criteria []string
	)
	if prefs.HasInterestArea(opp.InterestArea) {
		score += InterestAreaPoints
		criteria = append(criteria, CriterionInterestArea)
	}
	if pts := schedulePoints(prefs.TimePreferences, opp.Date); pts > 0 {
		score += pts
		criteria = append(criteria, CriterionSchedule)
	}
	// Flat bonus for having any commitment level at all; commitment is not
	// matched against the opportunity.
	if len(prefs.CommitmentLevels) > 0 {
		score += CommitmentPoints
	}
	return min(score, MaxScore), criteria
}

// schedulePoints: a flexible schedule fits any date, otherwise the date's
// weekday (in the date's own location) must match a weekday or weekend
// preference. Saturday and Sunday both need the weekend preference.
func schedulePoints(timePrefs []string, date *time.Time) int {
	if slices.Contains(timePrefs, model.FlexibleSchedule) {
		return FlexiblePoints
	}
	if date == nil {
		return 0
	}

	want := "Weekday"
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		want = "Weekend"
	}
	for _, p := range timePrefs {
		if strings.Contains(p, want) {
			return SchedulePoints
		}
	}
	return 0
}

// MatchService ranks opportunities for a user.
type MatchService struct {
	prefs  repository.PreferencesRepository
	opps   repository.OpportunityRepository
	logger *slog.Logger
}

func NewMatchService(prefs repository.PreferencesRepository, opps repository.OpportunityRepository, logger *slog.Logger) *MatchService {
	return &MatchService{prefs: prefs, opps: opps, logger: logger}
}

// RankOpportunities orders pool for userID. Without preferences it falls
// back to recency; that is a normal result, not an error.
func (s *MatchService) RankOpportunities(ctx context.Context, userID string, pool []model.Opportunity, limit int) (*Ranking, error) {
	prefs, err := s.loadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rank(prefs, pool, rankLimit(limit, DefaultMatchLimit)), nil
}

// GetRecommendedOpportunities narrows the store query to the user's interest
// areas when there are any, and ranks the result.
func (s *MatchService) GetRecommendedOpportunities(ctx context.Context, userID string, limit int) (*Ranking, error) {
	limit = rankLimit(limit, DefaultRecommendationLimit)

	prefs, err := s.loadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter := repository.OpportunityFilter{Limit: CandidatePoolSize}
	switch {
	case prefs == nil:
		filter.Limit = limit
	case len(prefs.InterestAreas) > 0:
		filter.InterestAreas = prefs.InterestAreas
	}

	pool, err := s.opps.ListOpportunities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}

	r := rank(prefs, pool, limit)
	s.logger.Debug("recommendations ranked",
		slog.String("userID", userID),
		slog.Bool("personalized", r.Personalized),
		slog.Int("candidates", len(pool)),
		slog.Int("matches", len(r.Matches)),
	)
	return r, nil
}

// MatchOpportunities ranks the most recent CandidatePoolSize opportunities.
func (s *MatchService) MatchOpportunities(ctx context.Context, userID string, limit int) (*Ranking, error) {
	pool, err := s.opps.ListOpportunities(ctx, repository.OpportunityFilter{Limit: CandidatePoolSize})
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	return s.RankOpportunities(ctx, userID, pool, limit)
}

func (s *MatchService) loadPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching preferences: %w", err)
	}
	return prefs, nil
}

func rank(prefs *model.Preferences, pool []model.Opportunity, limit int) *Ranking {
	if prefs == nil {
		recent := slices.Clone(pool)
		slices.SortStableFunc(recent, func(a, b model.Opportunity) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
		matches := make([]Match, 0, min(limit, len(recent)))
		for _, o := range recent[:min(limit, len(recent))] {
			matches = append(matches, Match{Opportunity: o})
		}
		return &Ranking{Matches: matches}
	}

	matches := make([]Match, 0, len(pool))
	for i := range pool {
		score, criteria := scoreWithCriteria(prefs, &pool[i])
		if score == 0 {
			continue
		}
		matches = append(matches, Match{Opportunity: pool[i], Score: score, MatchingCriteria: criteria})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return &Ranking{Personalized: true, Matches: matches[:min(limit, len(matches))]}
}

func rankLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxRankLimit)
}
