package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = rate.Limit(10)
	defaultBurst     = 5
	maxBodyBytes     = 16 << 20

	// timeLayout is the wire format of the from/to query parameters.
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// Options tunes the HTTP fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Headers   map[string]string
}

// Fetcher reads archive windows from a remote HTTP archive service.
//
// Request: GET <base>?from=<window end>&to=<window start>[&subject_ids=1,2]
// Response: an ArchiveRecord JSON document, `null`, or 204 for no data.
type Fetcher struct {
	endpoint   string
	headers    map[string]string
	limiter    *rate.Limiter
	httpClient *http.Client
}

var _ storage.RangeFetcher = (*Fetcher)(nil)

func NewFetcher(endpoint string, opts Options) (*Fetcher, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid archive endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid archive endpoint %q: scheme must be http or https", endpoint)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limit := defaultRateLimit
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}

	return &Fetcher{
		endpoint:   endpoint,
		headers:    opts.Headers,
		limiter:    rate.NewLimiter(limit, opts.Burst),
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// FetchRange issues one request for w. The rate limiter is waited on before
// the request goes out; the engine never retries, neither does this client.
func (f *Fetcher) FetchRange(ctx context.Context, w window.TimeWindow, subjectIDs []int64) (*v1.ArchiveRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(w, subjectIDs), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching archive window %s: %w", w, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil, storage.ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("archive service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading archive response: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, storage.ErrNoData
	}

	var record v1.ArchiveRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decoding archive response: %w", err)
	}
	if record.RangeStart.IsZero() {
		record.RangeStart = w.Start
	}
	if record.RangeEnd.IsZero() {
		record.RangeEnd = w.End
	}

	slog.Debug("[Remote] Fetched archive window",
		"window_start", w.Start,
		"window_end", w.End,
		"items", len(record.Items),
	)
	return &record, nil
}

func (f *Fetcher) requestURL(w window.TimeWindow, subjectIDs []int64) string {
	q := url.Values{}
	q.Set("from", w.End.Format(timeLayout))
	q.Set("to", w.Start.Format(timeLayout))
	if len(subjectIDs) > 0 {
		ids := make([]string, len(subjectIDs))
		for i, id := range subjectIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		q.Set("subject_ids", strings.Join(ids, ","))
	}

	sep := "?"
	if strings.Contains(f.endpoint, "?") {
		sep = "&"
	}
	return f.endpoint + sep + q.Encode()
}
