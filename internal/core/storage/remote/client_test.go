package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWindow = window.TimeWindow{
	Start: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
}

func TestFetcher_FetchRangeSendsWindowAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/archive", r.URL.Path)
		assert.Equal(t, "2026-03-08T12:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-03-15T12:00:00Z", r.URL.Query().Get("to"))
		assert.Equal(t, "7,9", r.URL.Query().Get("subject_ids"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"a1","subject_id":7,"order_date":"2026-03-14T09:30:00Z","kind":"match","value":"6.50"}]}`))
	}))
	defer srv.Close()

	f, err := NewFetcher(srv.URL+"/archive", Options{Headers: map[string]string{"X-Api-Key": "secret"}})
	require.NoError(t, err)

	record, err := f.FetchRange(context.Background(), testWindow, []int64{7, 9})
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, record.Items, 1)
	assert.Equal(t, testWindow.Start, record.RangeStart)
	assert.Equal(t, testWindow.End, record.RangeEnd)
	assert.Equal(t, int64(7), record.Items[0].SubjectID)
	assert.True(t, decimal.RequireFromString("6.5").Equal(record.Items[0].Value))
}

func TestFetcher_NoDataResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "null body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("null\n"))
			},
		},
		{
			name: "no content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			f, err := NewFetcher(srv.URL, Options{})
			require.NoError(t, err)

			record, err := f.FetchRange(context.Background(), testWindow, nil)
			require.ErrorIs(t, err, storage.ErrNoData)
			require.Nil(t, record)
		})
	}
}

func TestFetcher_ServerErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("subject_ids"))
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f, err := NewFetcher(srv.URL, Options{})
	require.NoError(t, err)

	_, err = f.FetchRange(context.Background(), testWindow, nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "502")
	require.NotErrorIs(t, err, storage.ErrNoData)
}

func TestFetcher_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	}))
	defer srv.Close()

	f, err := NewFetcher(srv.URL, Options{})
	require.NoError(t, err)

	_, err = f.FetchRange(context.Background(), testWindow, nil)
	require.ErrorContains(t, err, "decoding archive response")
}

func TestFetcher_RateLimitHonoursContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f, err := NewFetcher(srv.URL, Options{RateLimit: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = f.FetchRange(context.Background(), testWindow, nil)
	require.ErrorIs(t, err, storage.ErrNoData)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.FetchRange(ctx, testWindow, nil)
	require.ErrorContains(t, err, "rate limit wait")
	require.Equal(t, int32(1), hits.Load())
}

func TestNewFetcher_RejectsBadEndpoint(t *testing.T) {
	_, err := NewFetcher("ftp://archive.local", Options{})
	require.Error(t, err)

	_, err = NewFetcher("://nope", Options{})
	require.Error(t, err)
}

func TestFetcher_RequestURLKeepsExistingQuery(t *testing.T) {
	f, err := NewFetcher("https://archive.local/v2/range?tenant=club", Options{})
	require.NoError(t, err)

	u := f.requestURL(testWindow, []int64{3})
	assert.Contains(t, u, "https://archive.local/v2/range?tenant=club&")
	assert.Contains(t, u, "subject_ids=3")
}
