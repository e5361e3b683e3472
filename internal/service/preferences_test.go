package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestSavePreferences_SecondSaveReplacesFirst(t *testing.T) {
	repo := newFakePreferencesRepo()
	svc := NewPreferencesService(repo, testLogger())
	ctx := context.Background()

	first, err := svc.SavePreferences(ctx, model.PreferencesInput{UserID: "u1", InterestAreas: []string{"Environmental"}})
	require.NoError(t, err)

	second, err := svc.SavePreferences(ctx, model.PreferencesInput{UserID: "u1", InterestAreas: []string{"Education"}})
	require.NoError(t, err)

	assert.Len(t, repo.rows, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"Education"}, second.InterestAreas)
}

func TestSavePreferences_NotificationDefaultsAndKeeps(t *testing.T) {
	repo := newFakePreferencesRepo()
	svc := NewPreferencesService(repo, testLogger())
	ctx := context.Background()

	created, err := svc.SavePreferences(ctx, model.PreferencesInput{
		UserID:        "u1",
		Notifications: &model.NotificationPatch{Push: boolPtr(false)},
	})
	require.NoError(t, err)
	want := model.DefaultNotificationSettings()
	want.Push = false
	assert.Equal(t, want, created.Notifications)

	updated, err := svc.SavePreferences(ctx, model.PreferencesInput{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, updated.Notifications.Push, "omitted flag must keep its stored value")
}

func TestSavePreferences_NormalizesTags(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesRepo(), testLogger())

	p, err := svc.SavePreferences(context.Background(), model.PreferencesInput{
		UserID:          "u1",
		TimePreferences: []string{" Weekday Mornings ", "", "Weekday Mornings", "Weekend"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekday Mornings", "Weekend"}, p.TimePreferences)
}

func TestSavePreferences_Validation(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesRepo(), testLogger())

	tooMany := make([]string, MaxTagsPerList+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("area-%d", i)
	}

	tests := []struct {
		name string
		in   model.PreferencesInput
	}{
		{"missing user", model.PreferencesInput{InterestAreas: []string{"Health"}}},
		{"too many tags", model.PreferencesInput{UserID: "u1", InterestAreas: tooMany}},
		{"tag too long", model.PreferencesInput{UserID: "u1", CommitmentLevels: []string{string(make([]byte, MaxTagLength+1))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SavePreferences(context.Background(), tt.in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestSavePreferences_PriorLookupFailureDoesNotBlockSave(t *testing.T) {
	repo := newFakePreferencesRepo()
	repo.getErr = errors.New("read replica lagging")
	svc := NewPreferencesService(repo, testLogger())

	p, err := svc.SavePreferences(context.Background(), model.PreferencesInput{UserID: "u1", InterestAreas: []string{"Health"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
}

func TestSavePreferences_StoreFailure(t *testing.T) {
	repo := newFakePreferencesRepo()
	repo.saveErr = errors.New("disk full")
	svc := NewPreferencesService(repo, testLogger())

	_, err := svc.SavePreferences(context.Background(), model.PreferencesInput{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, apperror.Reason(err), "disk full")
}

func TestGetPreferences_AbsentIsNotAnError(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesRepo(), testLogger())

	p, err := svc.GetPreferences(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetPreferences_StoreFailureIsAnError(t *testing.T) {
	repo := newFakePreferencesRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewPreferencesService(repo, testLogger())

	p, err := svc.GetPreferences(context.Background(), "u1")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestUpdateNotificationSettings(t *testing.T) {
	repo := newFakePreferencesRepo()
	svc := NewPreferencesService(repo, testLogger())
	ctx := context.Background()

	_, err := svc.UpdateNotificationSettings(ctx, "u1", model.NotificationPatch{Email: boolPtr(false)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.SavePreferences(ctx, model.PreferencesInput{UserID: "u1", InterestAreas: []string{"Health"}})
	require.NoError(t, err)

	_, err = svc.UpdateNotificationSettings(ctx, "u1", model.NotificationPatch{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	p, err := svc.UpdateNotificationSettings(ctx, "u1", model.NotificationPatch{Email: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, p.Notifications.Email)
	assert.True(t, p.Notifications.Push)
	assert.Equal(t, []string{"Health"}, p.InterestAreas)
}
