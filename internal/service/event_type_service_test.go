package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/slotbook-api/internal/models"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

type fakeEventTypeRepo struct {
	fakeEventTypeReader
	listed  []models.EventType
	created *models.EventType
	updated *models.EventType
}

func (f *fakeEventTypeRepo) ListByUser(ctx context.Context, userID string) ([]models.EventType, error) {
	return f.listed, nil
}

func (f *fakeEventTypeRepo) Create(ctx context.Context, et *models.EventType) error {
	et.ID = "et-new"
	f.created = et
	return nil
}

func (f *fakeEventTypeRepo) Update(ctx context.Context, et *models.EventType) error {
	f.updated = et
	return nil
}

func TestEventTypeServiceCreate(t *testing.T) {
	repo := &fakeEventTypeRepo{fakeEventTypeReader: fakeEventTypeReader{types: map[string]*models.EventType{}}}
	svc := NewEventTypeService(repo, nil, nil)

	et, err := svc.Create(context.Background(), "prov-1", CreateEventTypeRequest{
		Name:            "Intro call",
		DurationMinutes: 30,
		BufferMinutes:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, "prov-1", et.UserID)
	assert.True(t, et.Active, "new event types start active")
	assert.Equal(t, repo.created, et)

	_, err = svc.Create(context.Background(), "prov-1", CreateEventTypeRequest{Name: "No duration"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestEventTypeServiceUpdate(t *testing.T) {
	repo := &fakeEventTypeRepo{fakeEventTypeReader: fakeEventTypeReader{types: map[string]*models.EventType{
		"et-1": {ID: "et-1", UserID: "prov-1", Name: "Old", DurationMinutes: 30, Active: true},
	}}}
	svc := NewEventTypeService(repo, nil, nil)

	et, err := svc.Update(context.Background(), "prov-1", "et-1", UpdateEventTypeRequest{
		Name:            "Renamed",
		DurationMinutes: 45,
		Active:          false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", et.Name)
	assert.Equal(t, 45, et.DurationMinutes)
	assert.False(t, et.Active)
	assert.Equal(t, repo.updated, et)
}

func TestEventTypeServiceUpdateOwnership(t *testing.T) {
	repo := &fakeEventTypeRepo{fakeEventTypeReader: fakeEventTypeReader{types: map[string]*models.EventType{
		"et-1": {ID: "et-1", UserID: "prov-other", Name: "Theirs", DurationMinutes: 30},
	}}}
	svc := NewEventTypeService(repo, nil, nil)

	// Another provider's event type reads as missing, not forbidden.
	_, err := svc.Update(context.Background(), "prov-1", "et-1", UpdateEventTypeRequest{
		Name:            "Hijack",
		DurationMinutes: 45,
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))

	_, err = svc.Update(context.Background(), "prov-1", "et-missing", UpdateEventTypeRequest{
		Name:            "Ghost",
		DurationMinutes: 45,
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
