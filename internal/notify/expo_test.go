package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.IsTest = true
	m.Run()
}

type fakeTokenStore struct {
	store.PushTokenStore
	mu          sync.Mutex
	tokens      []*types.PushToken
	tokensErr   error
	invalidated []string
	touched     []string
}

func (f *fakeTokenStore) GetActiveTokensForChecklist(_ context.Context, _ string) ([]*types.PushToken, error) {
	if f.tokensErr != nil {
		return nil, f.tokensErr
	}
	return f.tokens, nil
}

func (f *fakeTokenStore) InvalidateToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, token)
	return nil
}

func (f *fakeTokenStore) UpdateTokenLastUsed(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, token)
	return nil
}

func newTestSink(tokens *fakeTokenStore, url string) *ExpoSink {
	s := NewExpoSink(tokens)
	s.baseURL = url
	return s
}

func TestExpoSink_SendsToAllTokens(t *testing.T) {
	var received []ExpoMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		resp := ExpoResponse{Data: []ExpoTicket{
			{Status: "ok", ID: "t1"},
			{Status: "ok", ID: "t2"},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	tokens := &fakeTokenStore{tokens: []*types.PushToken{
		{Token: "ExponentPushToken[aaaaaaaaaaaaaaaaaaaaaa]"},
		{Token: "ExponentPushToken[bbbbbbbbbbbbbbbbbbbbbb]"},
	}}
	sink := newTestSink(tokens, srv.URL)

	err := sink.Notify(context.Background(), "trip-1", "Time to pack!", "Still to pack: Passport")
	require.NoError(t, err)

	require.Len(t, received, 2)
	assert.Equal(t, "Time to pack!", received[0].Title)
	assert.Equal(t, "packing_reminder_trip-1", received[0].CategoryID)
	assert.Equal(t, "trip-1", received[0].Data["checklistId"])
	assert.Len(t, tokens.touched, 2)
}

func TestExpoSink_NoTokensIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without tokens")
	}))
	defer srv.Close()

	sink := newTestSink(&fakeTokenStore{}, srv.URL)
	assert.NoError(t, sink.Notify(context.Background(), "trip-1", "Time to pack!", "body"))
}

func TestExpoSink_TokenLookupFailure(t *testing.T) {
	sink := newTestSink(&fakeTokenStore{tokensErr: errors.New("pg down")}, "http://unused")
	assert.Error(t, sink.Notify(context.Background(), "trip-1", "Time to pack!", "body"))
}

func TestExpoSink_InvalidatesUnregisteredDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ExpoResponse{Data: []ExpoTicket{
			{Status: "error", Message: "device gone", Details: &ExpoErrorDetails{Error: "DeviceNotRegistered"}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	tokens := &fakeTokenStore{tokens: []*types.PushToken{
		{Token: "ExponentPushToken[cccccccccccccccccccccc]"},
	}}
	sink := newTestSink(tokens, srv.URL)

	require.NoError(t, sink.Notify(context.Background(), "trip-1", "Time to pack!", "body"))
	assert.Equal(t, []string{"ExponentPushToken[cccccccccccccccccccccc]"}, tokens.invalidated)
	assert.Empty(t, tokens.touched)
}

func TestExpoSink_NonOKStatusAbsorbedPerBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	tokens := &fakeTokenStore{tokens: []*types.PushToken{
		{Token: "ExponentPushToken[dddddddddddddddddddddd]"},
	}}
	sink := newTestSink(tokens, srv.URL)

	// Batch failures are logged, not surfaced; the caller cannot retry usefully.
	assert.NoError(t, sink.Notify(context.Background(), "trip-1", "Time to pack!", "body"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	masked := maskToken("ExponentPushToken[eeeeeeeeeeeeeeeeeeeeee]")
	assert.Contains(t, masked, "********")
	assert.NotContains(t, masked, "eeeeeeeeeeeeee")
}
