package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"ghsearch/internal/search"
	"ghsearch/internal/ui/views"
)

// PlainController is what line mode needs from the search controller
type PlainController interface {
	SearchController
	Subscribe(fn func(search.Snapshot)) func()
	Settled() bool
}

const settlePoll = 10 * time.Millisecond

// RunPlain feeds each line of in to the controller as an input change and
// writes one block to out per settled search. It returns after EOF once the
// last search has settled, or when ctx is done.
func RunPlain(ctx context.Context, ctrl PlainController, in io.Reader, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)

	snaps := make(chan search.Snapshot, 16)
	unsubscribe := ctrl.Subscribe(func(s search.Snapshot) {
		select {
		case snaps <- s:
		case <-gctx.Done():
		}
	})
	defer unsubscribe()

	final := make(chan search.Snapshot, 1)

	g.Go(func() error {
		if err := readLines(gctx, in, ctrl.OnInputChange); err != nil {
			return err
		}

		ticker := time.NewTicker(settlePoll)
		defer ticker.Stop()
		for !ctrl.Settled() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
			}
		}
		final <- ctrl.Snapshot()
		return nil
	})

	g.Go(func() error {
		var printed uint64
		var want *search.Snapshot
		for {
			if want != nil && (want.Phase != search.PhaseSettled || printed >= want.Generation) {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case s := <-final:
				want = &s
			case s := <-snaps:
				if s.Phase != search.PhaseSettled || s.Loading || s.Generation <= printed {
					continue
				}
				printed = s.Generation
				if _, err := io.WriteString(out, views.RenderLine(s.Query, s.NumberUsers(), s.Users, s.Alert)); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
		}
	})

	return g.Wait()
}

// readLines calls fn with each line of in until EOF. The scanner runs on its
// own goroutine so ctx can interrupt a blocked read.
func readLines(ctx context.Context, in io.Reader, fn func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			fn(line)
		}
	}
}
