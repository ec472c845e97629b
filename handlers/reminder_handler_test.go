package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

func TestMain(m *testing.M) {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type MockTripStore struct {
	mock.Mock
}

func (m *MockTripStore) CreateTrip(ctx context.Context, trip *types.Trip) (string, error) {
	args := m.Called(ctx, trip)
	return args.String(0), args.Error(1)
}

func (m *MockTripStore) GetTrip(ctx context.Context, id string) (*types.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripStore) ListTripsByUser(ctx context.Context, userID string) ([]*types.Trip, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Trip), args.Error(1)
}

func (m *MockTripStore) UpdateTrip(ctx context.Context, id string, update *types.TripUpdate) (*types.Trip, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripStore) SoftDeleteTrip(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReminderStore struct {
	mock.Mock
}

func (m *MockReminderStore) GetByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error) {
	args := m.Called(ctx, checklistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockReminderStore) GetEnabledByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error) {
	args := m.Called(ctx, checklistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockReminderStore) Upsert(ctx context.Context, r *types.Reminder) (*types.Reminder, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockReminderStore) SetEnabled(ctx context.Context, checklistID string, enabled bool) error {
	args := m.Called(ctx, checklistID, enabled)
	return args.Error(0)
}

func (m *MockReminderStore) DeleteByChecklistID(ctx context.Context, checklistID string) error {
	args := m.Called(ctx, checklistID)
	return args.Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Save(ctx context.Context, input types.SaveReminderInput) (*types.Reminder, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockScheduler) Cancel(ctx context.Context, checklistID string) {
	m.Called(ctx, checklistID)
}

func newReminderRouter(h *ReminderHandler, userID string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})

	routes := r.Group("/v1/trips/:id/reminder")
	routes.GET("", h.GetReminder)
	routes.PUT("", h.SaveReminder)
	routes.DELETE("", h.DeleteReminder)
	return r
}

func ownedTrip() *types.Trip {
	return &types.Trip{
		ID:        "trip-1",
		Name:      "Lisbon",
		CreatedBy: "user-1",
	}
}

func TestGetReminder_ReturnsReminder(t *testing.T) {
	trips := new(MockTripStore)
	reminders := new(MockReminderStore)
	h := NewReminderHandler(reminders, trips, new(MockScheduler))

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)
	reminders.On("GetByChecklistID", mock.Anything, "trip-1").Return(&types.Reminder{
		ID:          "rem-1",
		ChecklistID: "trip-1",
		RepeatType:  types.RepeatDaily,
		IsEnabled:   true,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1/reminder", nil)
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got types.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "rem-1", got.ID)
	assert.True(t, got.IsEnabled)
}

func TestGetReminder_NotFound(t *testing.T) {
	trips := new(MockTripStore)
	reminders := new(MockReminderStore)
	h := NewReminderHandler(reminders, trips, new(MockScheduler))

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)
	reminders.On("GetByChecklistID", mock.Anything, "trip-1").Return(nil, store.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1/reminder", nil)
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReminder_ForbiddenForNonOwner(t *testing.T) {
	trips := new(MockTripStore)
	reminders := new(MockReminderStore)
	h := NewReminderHandler(reminders, trips, new(MockScheduler))

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1/reminder", nil)
	newReminderRouter(h, "intruder").ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	reminders.AssertNotCalled(t, "GetByChecklistID", mock.Anything, mock.Anything)
}

func TestSaveReminder_UsesChecklistIDFromPath(t *testing.T) {
	trips := new(MockTripStore)
	scheduler := new(MockScheduler)
	h := NewReminderHandler(new(MockReminderStore), trips, scheduler)

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)

	reminderTime := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	scheduler.On("Save", mock.Anything, mock.MatchedBy(func(in types.SaveReminderInput) bool {
		return in.ChecklistID == "trip-1" && in.RepeatType == types.RepeatDaily
	})).Return(&types.Reminder{
		ID:           "rem-1",
		ChecklistID:  "trip-1",
		ReminderTime: reminderTime,
		RepeatType:   types.RepeatDaily,
		IsEnabled:    true,
	}, nil)

	// The body claims a different checklist; the path wins.
	body, _ := json.Marshal(map[string]interface{}{
		"checklistId":  "someone-elses-trip",
		"reminderTime": reminderTime,
		"repeatType":   "DAILY",
		"isEnabled":    true,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/trips/trip-1/reminder", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	scheduler.AssertExpectations(t)
}

func TestSaveReminder_RejectsUnknownRepeatType(t *testing.T) {
	trips := new(MockTripStore)
	scheduler := new(MockScheduler)
	h := NewReminderHandler(new(MockReminderStore), trips, scheduler)

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)

	body, _ := json.Marshal(map[string]interface{}{
		"reminderTime": time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		"repeatType":   "HOURLY",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/trips/trip-1/reminder", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	scheduler.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDeleteReminder_CancelsBeforeDeleting(t *testing.T) {
	trips := new(MockTripStore)
	reminders := new(MockReminderStore)
	scheduler := new(MockScheduler)
	h := NewReminderHandler(reminders, trips, scheduler)

	trips.On("GetTrip", mock.Anything, "trip-1").Return(ownedTrip(), nil)
	scheduler.On("Cancel", mock.Anything, "trip-1").Return()
	reminders.On("DeleteByChecklistID", mock.Anything, "trip-1").Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/trips/trip-1/reminder", nil)
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	scheduler.AssertExpectations(t)
	reminders.AssertExpectations(t)
}

func TestDeleteReminder_MissingTrip(t *testing.T) {
	trips := new(MockTripStore)
	scheduler := new(MockScheduler)
	h := NewReminderHandler(new(MockReminderStore), trips, scheduler)

	trips.On("GetTrip", mock.Anything, "nope").Return(nil, store.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/trips/nope/reminder", nil)
	newReminderRouter(h, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	scheduler.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
