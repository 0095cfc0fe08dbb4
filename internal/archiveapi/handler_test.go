package archiveapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/archive"
	httperr "github.com/aevon-lab/activity-archive/internal/core/errors"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/aevon-lab/activity-archive/internal/filter"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource serves the same items to every window that contains them.
func staticSource(items []v1.ArchiveItem) storage.FetcherFunc {
	return func(_ context.Context, w window.TimeWindow, _ []int64) (*v1.ArchiveRecord, error) {
		var out []v1.ArchiveItem
		for _, it := range items {
			if w.Contains(it.OrderDate) {
				out = append(out, it)
			}
		}
		if len(out) == 0 {
			return nil, storage.ErrNoData
		}
		return &v1.ArchiveRecord{RangeStart: w.Start, RangeEnd: w.End, Items: out}, nil
	}
}

func sampleItems(n int, subject int64) []v1.ArchiveItem {
	newest := time.Now().UTC().Add(-time.Hour)
	out := make([]v1.ArchiveItem, n)
	for i := range out {
		out[i] = v1.ArchiveItem{
			ID:        fmt.Sprintf("s%d-%d", subject, i),
			SubjectID: subject,
			OrderDate: newest.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

type testEnv struct {
	router   *gin.Engine
	ctrl     *archive.Controller
	provider *filter.SessionFilter
}

func newTestEnv(t *testing.T, items []v1.ArchiveItem) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := filter.NewSessionFilter(nil)
	ctrl := archive.NewController(staticSource(items), provider, archive.Options{
		Epoch:    time.Now().UTC().AddDate(0, -2, 0),
		PageSize: 10,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ctrl.Close(ctx)
	})

	r := gin.New()
	NewHandler(ctrl, provider).RegisterRoutes(r)
	return &testEnv{router: r, ctrl: ctrl, provider: provider}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) waitLoaded(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.ctrl.Current().Wait(ctx))
}

func TestLoadHandler_StartsLoadAndPublishesOutputs(t *testing.T) {
	env := newTestEnv(t, append(sampleItems(30, 7), sampleItems(5, 8)...))

	resp := env.do(http.MethodPost, "/v1/archive/load", `{"subject_ids":[7]}`)
	require.Equal(t, http.StatusAccepted, resp.Code)

	var load loadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &load))
	require.NotEmpty(t, load.InvocationID)
	require.Equal(t, uint64(1), load.Generation)
	require.Equal(t, []int64{7}, load.SubjectIDs)

	env.waitLoaded(t)

	resp = env.do(http.MethodGet, "/v1/archive/full", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var full OutputResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &full))
	assert.True(t, full.Present)
	assert.Equal(t, 30, full.Total)
	assert.Equal(t, archive.OutputFullHistory, full.Output)

	resp = env.do(http.MethodGet, "/v1/archive/threshold", "")
	var subset OutputResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &subset))
	assert.True(t, subset.Present)
	assert.Equal(t, 30, subset.Total)

	resp = env.do(http.MethodGet, "/v1/archive/status", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var status archive.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.True(t, status.FullHistoryReady)
	assert.True(t, status.ThresholdReached)
	assert.False(t, status.Running)
	assert.Len(t, status.Loaders, 3)
}

func TestLoadHandler_EmptyBodyUsesProviderSubjects(t *testing.T) {
	env := newTestEnv(t, sampleItems(3, 4))
	env.provider.AddSubjects(4)

	resp := env.do(http.MethodPost, "/v1/archive/load", "")
	require.Equal(t, http.StatusAccepted, resp.Code)

	var load loadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &load))
	require.Equal(t, []int64{4}, load.SubjectIDs)
}

func TestLoadHandler_InvalidRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{`{"subject_ids":"seven"}`, `{"subject_ids":[0]}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/v1/archive/load", body)
			require.Equal(t, http.StatusBadRequest, resp.Code)

			var errResp httperr.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
			require.Equal(t, httperr.HttpInvalidRequestError, errResp.ErrorType)
		})
	}
	require.Nil(t, env.ctrl.Current())
}

func TestOutputHandler_AbsentBeforeLoad(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/v1/archive/recent", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"output":"recent_within_range","generation":0,"version":0,"present":false,"total":0,"items":[]}`, resp.Body.String())
}

func TestPageHandlers(t *testing.T) {
	env := newTestEnv(t, sampleItems(25, 1))
	env.do(http.MethodPost, "/v1/archive/load", "")
	env.waitLoaded(t)

	resp := env.do(http.MethodGet, "/v1/archive/items?page=2", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var page archive.Page
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	require.Equal(t, 2, page.Number)
	require.Equal(t, 25, page.Total)
	require.Len(t, page.Items, 5)
	require.Equal(t, archive.OutputFullHistory, page.Source)

	for _, want := range []int{10, 10, 5, 0} {
		resp = env.do(http.MethodGet, "/v1/archive/items/next", "")
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
		require.Len(t, page.Items, want)
	}

	resp = env.do(http.MethodGet, "/v1/archive/items?page=9223372036854775807", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	require.Empty(t, page.Items)
	require.Equal(t, 25, page.Total)

	resp = env.do(http.MethodGet, "/v1/archive/items?page=-1", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp = env.do(http.MethodGet, "/v1/archive/items?page=x", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddSubjectsHandler(t *testing.T) {
	env := newTestEnv(t, append(sampleItems(2, 1), sampleItems(2, 2)...))
	env.provider.AddSubjects(1)

	resp := env.do(http.MethodPost, "/v1/archive/subjects", `{"subject_ids":[2,1]}`)
	require.Equal(t, http.StatusAccepted, resp.Code)

	var load loadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &load))
	require.Equal(t, []int64{1, 2}, load.SubjectIDs)

	resp = env.do(http.MethodPost, "/v1/archive/subjects", `{"subject_ids":[]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddSubjectsHandler_FixedAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := archive.NewController(staticSource(nil), nil, archive.Options{})
	defer ctrl.Close(context.Background())

	r := gin.New()
	NewHandler(ctrl, nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/archive/subjects", strings.NewReader(`{"subject_ids":[1]}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotImplemented, resp.Code)
}

func TestWatchHandler_StreamsCurrentOutputs(t *testing.T) {
	env := newTestEnv(t, sampleItems(26, 1))
	env.do(http.MethodPost, "/v1/archive/load", "")
	env.waitLoaded(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/archive/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	seen := map[string]OutputResponse{}
	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for len(seen) < 3 && scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			var out OutputResponse
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &out))
			seen[event] = out
		}
	}

	require.Len(t, seen, 3)
	assert.Equal(t, 26, seen[archive.OutputFullHistory].Total)
	assert.Equal(t, 26, seen[archive.OutputThresholdSubset].Total)
	assert.Equal(t, 26, seen[archive.OutputRecent].Total)
	assert.Equal(t, uint64(1), seen[archive.OutputFullHistory].Generation)
}
