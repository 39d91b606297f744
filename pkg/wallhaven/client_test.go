package wallhaven

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "wallheaven-sync/pkg/errors"
	"wallheaven-sync/pkg/logger"
	"wallheaven-sync/pkg/retry"
	"wallheaven-sync/pkg/ui"
)

type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newMockHTTPClient(handler func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: &mockRoundTripper{handler: handler}}
}

func newResponse(statusCode int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     header,
	}
}

// recordSleep returns a sleep func that records waits without blocking
func recordSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestFetchReturnsResponseRegardlessOfStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Nothing here"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Nothing here"}`, string(resp.Body))

	text, err := client.FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"Nothing here"}`, text)
}

func TestFetchSendsHeaders(t *testing.T) {
	var gotUA, gotKey, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-API-Key")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("wallheaven_sync/test"), WithAPIKey("k3y"))
	data, err := client.DownloadAsset(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, "wallheaven_sync/test", gotUA)
	assert.Equal(t, "k3y", gotKey)
	assert.Equal(t, "image/*", gotAccept)
}

func TestEmptyAPIKeyIsNotSent(t *testing.T) {
	var present bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Api-Key"]
	}))
	defer server.Close()

	_, err := NewClient(WithAPIKey("")).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRetryAfterBlocksAndReissues(t *testing.T) {
	if testing.Short() {
		t.Skip("waits two seconds")
	}

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	notifier := &ui.RecordingNotifier{}
	client := NewClient(WithNotifier(notifier))

	start := time.Now()
	resp, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Reached request per minute limit, waiting 2 seconds..."}, notifier.Snapshot())
}

func TestRetryAfterFractionalAndRepeated(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 3 {
			w.Header().Set("Retry-After", "0.5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	var waits []time.Duration
	tl := logger.NewTestLogger()
	client := NewClient(WithSleep(recordSleep(&waits)), WithLogger(tl))

	resp, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, waits)
	assert.Equal(t, int32(4), atomic.LoadInt32(&requests))
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 3)
}

func TestRetryAfterOnSuccessStatusStillWaits(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "1")
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	var waits []time.Duration
	_, err := NewClient(WithSleep(recordSleep(&waits))).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, waits)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestBoundedPolicyRefusesWait(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var waits []time.Duration
	client := NewClient(
		WithSleep(recordSleep(&waits)),
		WithPolicy(retry.Bounded{MaxAttempts: 2}),
	)

	_, err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeQuota))
	assert.Len(t, waits, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestNonNumericRetryAfterIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "later")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient().Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeProtocol))
}

func TestTransportErrorIsFatalAndNotRetried(t *testing.T) {
	var calls int
	hc := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	_, err := NewClient(WithHTTPClient(hc)).Fetch(context.Background(), "https://wallhaven.cc/api/v1/w/abc")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
	assert.True(t, errs.IsFatal(err))
	assert.Equal(t, 1, calls)
}

func TestBodyReadErrorIsTransportError(t *testing.T) {
	hc := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(&failingReader{}),
			Header:     make(http.Header),
		}, nil
	})

	_, err := NewClient(WithHTTPClient(hc)).Fetch(context.Background(), "https://wallhaven.cc/x")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestDownloadAssetNon200(t *testing.T) {
	hc := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusNotFound, "", nil), nil
	})

	_, err := NewClient(WithHTTPClient(hc)).DownloadAsset(context.Background(), "https://w.wallhaven.cc/full/ab/x.jpg")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ErrorTypeDownload, e.Type)
	assert.Equal(t, http.StatusNotFound, e.Code)
	assert.False(t, errs.IsFatal(err))
}

func TestCancelledWait(t *testing.T) {
	hc := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		h := make(http.Header)
		h.Set("Retry-After", "3600")
		return newResponse(http.StatusTooManyRequests, "", h), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(WithHTTPClient(hc)).Fetch(ctx, "https://wallhaven.cc/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
