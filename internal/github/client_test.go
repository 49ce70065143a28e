package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghsearch/internal/apperror"
	"ghsearch/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL + "/search/users")
	require.NoError(t, err)
	return c
}

func TestSearch_Success(t *testing.T) {
	var gotQuery, gotAccept, gotUA, gotAuth, gotRequestID string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"id":1,"login":"abby","avatar_url":"u"}]}`))
	})

	ctx := WithRequestID(context.Background(), "req-1")
	res, err := c.Search(ctx, "ab")
	require.NoError(t, err)

	assert.Equal(t, domain.SearchResult{
		Items:      []domain.UserSummary{{ID: 1, Login: "abby", AvatarURL: "u"}},
		TotalCount: 1,
	}, res)
	assert.Equal(t, "ab", gotQuery)
	assert.Equal(t, "application/vnd.github+json", gotAccept)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "req-1", gotRequestID)
}

func TestSearch_QueryIsEscaped(t *testing.T) {
	var gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"total_count":0,"items":[]}`))
	})

	res, err := c.Search(context.Background(), "tom & jerry+type:user")
	require.NoError(t, err)

	assert.Equal(t, "tom & jerry+type:user", gotQuery)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
}

func TestSearch_TokenAndUserAgent(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"total_count":0,"items":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithToken("secret"), WithUserAgent("ghsearch-test"))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "ghsearch-test", gotUA)
}

func TestSearch_BadResponseUsesServerMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	})

	_, err := c.Search(context.Background(), "ab")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBadResponse)
	assert.Equal(t, "rate limited", apperror.Message(err))
}

func TestSearch_BadResponseWithoutMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.Search(context.Background(), "ab")

	assert.ErrorIs(t, err, apperror.ErrBadResponse)
	assert.Equal(t, "request failed: 500 Internal Server Error", err.Error())
}

func TestSearch_ParseFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"total_count":`},
		{"missing total_count", `{"items":[]}`},
		{"missing items", `{"total_count":3}`},
		{"negative total", `{"total_count":-1,"items":[]}`},
		{"item without id", `{"total_count":1,"items":[{"login":"abby"}]}`},
		{"item without login", `{"total_count":1,"items":[{"id":1}]}`},
		{"items wrong type", `{"total_count":1,"items":{"id":1}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.Search(context.Background(), "ab")

			assert.ErrorIs(t, err, apperror.ErrParse)
			assert.NotEmpty(t, apperror.Message(err))
		})
	}
}

func TestSearch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "ab")
	assert.ErrorIs(t, err, apperror.ErrNetwork)
}

func TestSearch_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Search(ctx, "ab")

	assert.ErrorIs(t, err, apperror.ErrNetwork)
	assert.True(t, IsCanceled(err))
}

func TestSearch_EmptyQueryNeverHitsNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.Search(context.Background(), "")

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_RateLimiterDelaysSecondCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count":0,"items":[]}`))
	}))
	defer srv.Close()

	// 1200 per minute is one every 50ms
	c, err := NewClient(srv.URL, WithRequestsPerMinute(1200))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Search(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "b")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	_, err := NewClient("ftp://example.com/search")
	assert.Error(t, err)

	_, err = NewClient("://nope")
	assert.Error(t, err)

	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.Endpoint())
}

func TestRequestIDRoundTrip(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))
	assert.Equal(t, "abc", RequestIDFrom(WithRequestID(context.Background(), "abc")))
}
