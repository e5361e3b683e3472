package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

const (
	MaxProfileNameLength = 100
	MaxAvatarURLLength   = 2048
)

// ProfileService keeps exactly one profile per identity.
//
// CREATION UNDER RACES:
// Two sign-in paths (say the HTTP sign-in and a restored client session) can
// call EnsureProfile for the same identity at the same moment. Both miss on
// the fetch, both insert. The primary key on profile id lets exactly one
// insert through; the other gets apperror.ErrConflict, which here means
// "someone else just created it" and is answered by fetching again.
type ProfileService struct {
	repo   repository.ProfileRepository
	logger *slog.Logger
}

func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger}
}

// EnsureProfile returns the profile for identity, creating it with zeroed
// counters on first use.
func (s *ProfileService) EnsureProfile(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	if identity == nil || strings.TrimSpace(identity.ID) == "" {
		return nil, apperror.ValidationFailed("identity", "an identity with an id is required")
	}

	existing, err := s.repo.GetProfile(ctx, identity.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	profile := &model.Profile{
		ID:    identity.ID,
		Name:  identity.DisplayName(),
		Email: identity.Email,
	}
	if err := s.repo.InsertProfile(ctx, profile); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create profile",
				slog.String("userID", identity.ID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("creating profile: %w", err)
		}

		s.logger.Debug("profile created concurrently, re-fetching", slog.String("userID", identity.ID))
		winner, err := s.repo.GetProfile(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching profile after conflict: %w", err)
		}
		return winner, nil
	}

	s.logger.Info("profile created",
		slog.String("userID", profile.ID),
		slog.String("name", profile.Name),
	)
	return profile, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile ID is required")
	}
	return s.repo.GetProfile(ctx, id)
}

// UpdateProfile applies the user-editable fields. Email is not editable and
// the counters only change through RefreshStats.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile ID is required")
	}
	if update.IsEmpty() {
		return nil, apperror.ValidationFailed("profile", "no profile fields to update")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		if len(name) > MaxProfileNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxProfileNameLength))
		}
		update.Name = &name
	}
	if update.AvatarURL != nil {
		avatar := strings.TrimSpace(*update.AvatarURL)
		if len(avatar) > MaxAvatarURLLength {
			return nil, apperror.ValidationFailed("avatarUrl", "avatar URL is too long")
		}
		if avatar != "" {
			if u, err := url.Parse(avatar); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return nil, apperror.ValidationFailed("avatarUrl", "avatar URL must be an http(s) URL")
			}
		}
		update.AvatarURL = &avatar
	}

	profile, err := s.repo.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update profile",
			slog.String("userID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.String("userID", id))
	return profile, nil
}

// RefreshStats recomputes the engagement counters from the activity records.
func (s *ProfileService) RefreshStats(ctx context.Context, id string) (*model.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "profile ID is required")
	}

	profile, err := s.repo.RecomputeProfileStats(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("refreshing profile stats: %w", err)
	}

	s.logger.Debug("profile stats refreshed",
		slog.String("userID", id),
		slog.Int("volunteerHours", profile.VolunteerHours),
		slog.Int("eventsAttended", profile.EventsAttended),
		slog.Int("donationsMade", profile.DonationsMade),
	)
	return profile, nil
}
