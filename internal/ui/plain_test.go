package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghsearch/internal/alert"
	"ghsearch/internal/apperror"
	"ghsearch/internal/domain"
	"ghsearch/internal/search"
)

// syncBuffer is a bytes.Buffer safe for the printer goroutine and the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newPlainController(t *testing.T, fn search.SearcherFunc) *search.Controller {
	t.Helper()
	ctrl := search.NewController(fn, alert.New(time.Minute), nil, search.WithDebounce(20*time.Millisecond))
	t.Cleanup(ctrl.Close)
	return ctrl
}

func echoUsers(_ context.Context, q string) (domain.SearchResult, error) {
	return domain.SearchResult{
		Items:      []domain.UserSummary{{ID: 7, Login: q + "-user", AvatarURL: "https://avatars.example/" + q}},
		TotalCount: 1,
	}, nil
}

func TestRunPlain_PrintsSettledResultAtEOF(t *testing.T) {
	ctrl := newPlainController(t, echoUsers)
	out := &syncBuffer{}

	err := RunPlain(context.Background(), ctrl, strings.NewReader("octo\n"), out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), `"octo": users found: 1`)
	assert.Contains(t, out.String(), "octo-user  7  https://avatars.example/octo")
}

func TestRunPlain_BurstOfLinesSearchesOnlyTheLast(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	ctrl := newPlainController(t, func(ctx context.Context, q string) (domain.SearchResult, error) {
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		return echoUsers(ctx, q)
	})
	out := &syncBuffer{}

	err := RunPlain(context.Background(), ctrl, strings.NewReader("a\nab\nabc\n"), out)

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"abc"}, queries)
	assert.Equal(t, 1, strings.Count(out.String(), "users found"))
}

func TestRunPlain_SlowLinesEachSettle(t *testing.T) {
	ctrl := newPlainController(t, echoUsers)
	out := &syncBuffer{}
	r, w := io.Pipe()

	done := make(chan error, 1)
	go func() { done <- RunPlain(context.Background(), ctrl, r, out) }()

	_, _ = io.WriteString(w, "one\n")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), `"one"`) }, 2*time.Second, 5*time.Millisecond)
	_, _ = io.WriteString(w, "two\n")
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunPlain did not return after EOF")
	}
	assert.Contains(t, out.String(), `"two": users found: 1`)
}

func TestRunPlain_PrintsFailure(t *testing.T) {
	ctrl := newPlainController(t, func(context.Context, string) (domain.SearchResult, error) {
		return domain.SearchResult{}, apperror.BadResponse(403, "rate limited")
	})
	out := &syncBuffer{}

	err := RunPlain(context.Background(), ctrl, strings.NewReader("ab\n"), out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "error: rate limited")
	assert.Contains(t, out.String(), `"ab": users found: -`)
}

func TestRunPlain_EmptyInputReturnsImmediately(t *testing.T) {
	ctrl := newPlainController(t, echoUsers)
	out := &syncBuffer{}

	err := RunPlain(context.Background(), ctrl, strings.NewReader(""), out)

	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestRunPlain_ContextCancelStopsBlockedRead(t *testing.T) {
	ctrl := newPlainController(t, echoUsers)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunPlain(ctx, ctrl, r, io.Discard) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("RunPlain ignored cancellation")
	}
}
