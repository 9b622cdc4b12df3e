package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimflow/internal/retry"
)

func fastStore(baseURL string) *HTTPStore {
	s := NewHTTPStore(baseURL)
	s.retry = retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return s
}

func TestHTTPStoreReadyEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/evidence/ev-1/entities", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"done","entities":{"incident_date":"2026-08-20","total_amount":"3100"}}`))
	}))
	defer srv.Close()

	ents, err := fastStore(srv.URL).GetExtractedEntities(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-20", ents[EntityIncidentDate])
	assert.Equal(t, "3100", ents[EntityTotalAmount])
}

func TestHTTPStoreStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantErr error
	}{
		{"accepted means still processing", http.StatusAccepted, "", ErrNotReady},
		{"processing body means still processing", http.StatusOK, `{"status":"processing"}`, ErrNotReady},
		{"not found is invalid", http.StatusNotFound, "", ErrInvalid},
		{"unprocessable is invalid", http.StatusUnprocessableEntity, "", ErrInvalid},
		{"failed body is invalid", http.StatusOK, `{"status":"failed"}`, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			_, err := fastStore(srv.URL).GetExtractedEntities(context.Background(), "ev-1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPStoreRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"done","entities":{}}`))
	}))
	defer srv.Close()

	_, err := fastStore(srv.URL).GetExtractedEntities(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStaticStorePendingCountdown(t *testing.T) {
	s := NewStaticStore()
	s.PutPending("ev-1", 1, Entities{EntityIncidentDate: "2026-08-20"})

	_, err := s.GetExtractedEntities(context.Background(), "ev-1")
	assert.ErrorIs(t, err, ErrNotReady)

	ents, err := s.GetExtractedEntities(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-20", ents[EntityIncidentDate])
}
