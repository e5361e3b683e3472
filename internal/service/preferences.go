package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

const (
	MaxTagsPerList = 25
	MaxTagLength   = 80
)

// PreferencesService stores the one preference row each user may have.
type PreferencesService struct {
	repo   repository.PreferencesRepository
	logger *slog.Logger
}

func NewPreferencesService(repo repository.PreferencesRepository, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{repo: repo, logger: logger}
}

// SavePreferences writes the whole preference record for in.UserID.
//
// The write is the store's atomic upsert on user_id, so two first-time saves
// racing each other still leave one row. The select before it only decides
// what to log; it never picks between insert and update.
func (s *PreferencesService) SavePreferences(ctx context.Context, in model.PreferencesInput) (*model.Preferences, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	for _, list := range []struct {
		field string
		tags  *[]string
	}{
		{"interestAreas", &in.InterestAreas},
		{"timePreferences", &in.TimePreferences},
		{"commitmentLevels", &in.CommitmentLevels},
	} {
		tags := model.NormalizeTags(*list.tags)
		if len(tags) > MaxTagsPerList {
			return nil, apperror.ValidationFailed(list.field,
				fmt.Sprintf("%s may hold at most %d entries", list.field, MaxTagsPerList))
		}
		for _, t := range tags {
			if len(t) > MaxTagLength {
				return nil, apperror.ValidationFailed(list.field,
					fmt.Sprintf("%s entries must be %d characters or less", list.field, MaxTagLength))
			}
		}
		*list.tags = tags
	}

	prior, err := s.repo.GetPreferences(ctx, in.UserID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Warn("pre-save preferences lookup failed",
			slog.String("userID", in.UserID),
			slog.String("error", err.Error()),
		)
	}

	saved, err := s.repo.UpsertPreferences(ctx, in)
	if err != nil {
		s.logger.Error("failed to save preferences",
			slog.String("userID", in.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving preferences: %w", err)
	}
	if saved.UserID != in.UserID {
		return nil, fmt.Errorf("saving preferences: store returned the row of %q for %q", saved.UserID, in.UserID)
	}
	if prior != nil && prior.ID != saved.ID {
		s.logger.Warn("preferences row replaced instead of updated",
			slog.String("userID", in.UserID),
			slog.String("priorID", prior.ID),
			slog.String("savedID", saved.ID),
		)
	}

	msg := "preferences created"
	if prior != nil {
		msg = "preferences updated"
	}
	s.logger.Info(msg,
		slog.String("userID", in.UserID),
		slog.Int("interestAreas", len(saved.InterestAreas)),
	)
	return saved, nil
}

// GetPreferences returns nil, nil when the user has not saved preferences
// yet. Only a store failure is an error.
func (s *PreferencesService) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	p, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching preferences: %w", err)
	}
	return p, nil
}

// UpdateNotificationSettings patches only the notification flags of an
// existing preference row.
func (s *PreferencesService) UpdateNotificationSettings(ctx context.Context, userID string, patch model.NotificationPatch) (*model.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if patch == (model.NotificationPatch{}) {
		return nil, apperror.ValidationFailed("notificationSettings", "no notification settings to update")
	}

	p, err := s.repo.UpdateNotificationSettings(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating notification settings: %w", err)
	}

	s.logger.Info("notification settings updated", slog.String("userID", userID))
	return p, nil
}
