package rehydrate_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/ranking"
	"github.com/okian/ranked/internal/domain/rehydrate"
	. "github.com/smartystreets/goconvey/convey"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	alice = model.Player{UUID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "alice"}
	bob   = model.Player{UUID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "bob"}
)

// perRange returns alice with value base+tr and bob with a fixed 1, so each
// time range gets a distinguishable ranking.
func perRange[V model.Value](base uint64, calls *atomic.Int64) rehydrate.ProviderFunc[V] {
	return func(_ context.Context, tr model.TimeRange) ([]model.Record[V], error) {
		if calls != nil {
			calls.Add(1)
		}
		return []model.Record[V]{
			{Player: bob, Value: 1},
			{Player: alice, Value: V(base + uint64(tr))},
		}, nil
	}
}

func failing[V model.Value](err error) rehydrate.ProviderFunc[V] {
	return func(context.Context, model.TimeRange) ([]model.Record[V], error) {
		return nil, err
	}
}

func healthyProviders(calls *atomic.Int64) rehydrate.Providers {
	return rehydrate.Providers{
		Break:     perRange[model.BreakCount](100, calls),
		Build:     perRange[model.BuildCount](200, calls),
		PlayTicks: perRange[model.PlayTickCount](300, calls),
		Vote:      perRange[model.VoteCount](400, calls),
	}
}

func TestProvidersValidate(t *testing.T) {
	Convey("Given a provider bundle", t, func() {
		Convey("When every kind has a provider", func() {
			So(healthyProviders(nil).Validate(), ShouldBeNil)
		})

		Convey("When a kind is missing", func() {
			p := healthyProviders(nil)
			p.PlayTicks = nil
			err := p.Validate()
			So(errors.Is(err, rehydrate.ErrNoProvider), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "play_ticks")
		})
	})
}

func TestPass(t *testing.T) {
	Convey("Given a store and healthy providers", t, func() {
		store := ranking.NewStore()
		loop := rehydrate.New(store, healthyProviders(nil))

		Convey("When one pass runs", func() {
			report, err := loop.Pass(context.Background())
			So(err, ShouldBeNil)

			Convey("Then every pair is refreshed", func() {
				So(report.Refreshed, ShouldEqual, model.KindCount*model.TimeRangeCount)
				So(report.Failed(), ShouldEqual, 0)
				So(report.Finished.Before(report.Started), ShouldBeFalse)
			})

			Convey("And each time range got its own record set", func() {
				for _, tr := range model.TimeRanges() {
					got, ok := store.Vote.For(tr).Lookup(alice.UUID)
					So(ok, ShouldBeTrue)
					So(got.Rank, ShouldEqual, 1)
					So(uint64(got.Record.Value), ShouldEqual, 400+uint64(tr))
				}
			})

			Convey("And the status counts the pass", func() {
				st := loop.Status()
				So(st.Passes, ShouldEqual, 1)
				So(st.LastPass.Refreshed, ShouldEqual, 20)
				So(st.Running, ShouldBeFalse)
			})
		})
	})

	Convey("Given Break fails while Build succeeds", t, func() {
		store := ranking.NewStore()
		previous := []model.Record[model.BreakCount]{{Player: bob, Value: 7}}
		for _, tr := range model.TimeRanges() {
			So(store.Break.For(tr).Rebuild(previous), ShouldBeNil)
		}

		providers := healthyProviders(nil)
		providers.Break = failing[model.BreakCount](errors.New("database is locked"))
		loop := rehydrate.New(store, providers)

		report, err := loop.Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then every Break pair is reported as a fetch error", func() {
			So(report.Failed(), ShouldEqual, model.TimeRangeCount)
			So(report.Refreshed, ShouldEqual, 3*model.TimeRangeCount)
			for i, f := range report.Failures {
				So(f.Kind, ShouldEqual, model.Break)
				So(f.TimeRange, ShouldEqual, model.TimeRanges()[i])
				So(errors.Is(f, rehydrate.ErrFetch), ShouldBeTrue)
			}
		})

		Convey("And the Break rankings keep serving the previous snapshot", func() {
			for _, tr := range model.TimeRanges() {
				r := store.Break.For(tr)
				So(r.Len(), ShouldEqual, 1)
				got, ok := r.Lookup(bob.UUID)
				So(ok, ShouldBeTrue)
				So(uint64(got.Record.Value), ShouldEqual, 7)
			}
		})

		Convey("And the Build rankings are updated", func() {
			for _, tr := range model.TimeRanges() {
				got, ok := store.Build.For(tr).Lookup(alice.UUID)
				So(ok, ShouldBeTrue)
				So(uint64(got.Record.Value), ShouldEqual, 200+uint64(tr))
			}
		})
	})

	Convey("Given a provider that emits a player twice", t, func() {
		store := ranking.NewStore()
		providers := healthyProviders(nil)
		providers.Vote = rehydrate.ProviderFunc[model.VoteCount](func(context.Context, model.TimeRange) ([]model.Record[model.VoteCount], error) {
			return []model.Record[model.VoteCount]{{Player: alice, Value: 1}, {Player: alice, Value: 2}}, nil
		})

		report, err := rehydrate.New(store, providers).Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then the pair is skipped as malformed data", func() {
			So(report.Failed(), ShouldEqual, model.TimeRangeCount)
			So(errors.Is(report.Failures[0], ranking.ErrDuplicatePlayer), ShouldBeTrue)
			So(errors.Is(report.Failures[0], rehydrate.ErrFetch), ShouldBeTrue)
			So(store.Vote.For(model.All).Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a provider that never returns on its own", t, func() {
		store := ranking.NewStore()
		providers := healthyProviders(nil)
		providers.PlayTicks = rehydrate.ProviderFunc[model.PlayTickCount](func(ctx context.Context, _ model.TimeRange) ([]model.Record[model.PlayTickCount], error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		loop := rehydrate.New(store, providers, rehydrate.WithFetchTimeout(5*time.Millisecond))

		report, err := loop.Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then the fetch deadline skips it and the pass completes", func() {
			So(report.Failed(), ShouldEqual, model.TimeRangeCount)
			So(errors.Is(report.Failures[0], context.DeadlineExceeded), ShouldBeTrue)
			So(report.Refreshed, ShouldEqual, 3*model.TimeRangeCount)
		})
	})

	Convey("Given kinds refreshed concurrently", t, func() {
		store := ranking.NewStore()
		providers := healthyProviders(nil)
		providers.Build = failing[model.BuildCount](errors.New("boom"))
		providers.Vote = failing[model.VoteCount](errors.New("boom"))
		loop := rehydrate.New(store, providers, rehydrate.WithConcurrency(4))

		report, err := loop.Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then failures are still reported in kind then time range order", func() {
			So(report.Failed(), ShouldEqual, 2*model.TimeRangeCount)
			So(report.Failures[0].Kind, ShouldEqual, model.Build)
			So(report.Failures[model.TimeRangeCount].Kind, ShouldEqual, model.Vote)
			So(report.Refreshed, ShouldEqual, 2*model.TimeRangeCount)
		})
	})

	Convey("Given a provider that panics", t, func() {
		store := ranking.NewStore()
		providers := healthyProviders(nil)
		providers.Build = rehydrate.ProviderFunc[model.BuildCount](func(context.Context, model.TimeRange) ([]model.Record[model.BuildCount], error) {
			panic("corrupted state")
		})

		Convey("When a pass runs", func() {
			_, err := rehydrate.New(store, providers).Pass(context.Background())

			Convey("Then it fails fatally", func() {
				So(errors.Is(err, rehydrate.ErrLoopFatal), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "corrupted state")
			})
		})

		Convey("When the loop runs", func() {
			loop := rehydrate.New(store, providers, rehydrate.WithConcurrency(2))
			err := loop.Run(context.Background())

			Convey("Then Run returns a fatal error and the status reflects it", func() {
				So(errors.Is(err, rehydrate.ErrLoopFatal), ShouldBeTrue)
				st := loop.Status()
				So(st.Running, ShouldBeFalse)
				So(errors.Is(st.Err, rehydrate.ErrLoopFatal), ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a loop with a short interval", t, func() {
		var calls atomic.Int64
		store := ranking.NewStore()
		loop := rehydrate.New(store, healthyProviders(&calls), rehydrate.WithInterval(5*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()

		Convey("Then it passes immediately and keeps repeating until cancelled", func() {
			perPass := int64(model.KindCount * model.TimeRangeCount)
			deadline := time.Now().Add(5 * time.Second)
			for calls.Load() < 3*perPass && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			So(calls.Load(), ShouldBeGreaterThanOrEqualTo, 3*perPass)
			So(loop.Status().Running, ShouldBeTrue)
			So(store.Break.For(model.All).Len(), ShouldEqual, 2)

			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				So("loop did not stop", ShouldBeEmpty)
			}
			st := loop.Status()
			So(st.Running, ShouldBeFalse)
			So(st.Err, ShouldBeNil)
			So(st.Passes, ShouldBeGreaterThanOrEqualTo, 3)
		})

		Reset(cancel)
	})

	Convey("Given a loop with a long interval", t, func() {
		var calls atomic.Int64
		loop := rehydrate.New(ranking.NewStore(), healthyProviders(&calls), rehydrate.WithInterval(time.Hour))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()

		deadline := time.Now().Add(5 * time.Second)
		for loop.Status().Passes < 1 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()

		Convey("Then cancellation interrupts the sleep", func() {
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				So("loop did not stop", ShouldBeEmpty)
			}
			So(calls.Load(), ShouldEqual, int64(model.KindCount*model.TimeRangeCount))
		})
	})

	Convey("Given a bundle with a missing provider", t, func() {
		p := healthyProviders(nil)
		p.Vote = nil
		err := rehydrate.New(ranking.NewStore(), p).Run(context.Background())

		Convey("Then Run refuses to start", func() {
			So(errors.Is(err, rehydrate.ErrLoopFatal), ShouldBeTrue)
			So(errors.Is(err, rehydrate.ErrNoProvider), ShouldBeTrue)
		})
	})

	Convey("Given an already cancelled context", t, func() {
		var calls atomic.Int64
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := rehydrate.New(ranking.NewStore(), healthyProviders(&calls)).Run(ctx)

		So(err, ShouldBeNil)
		So(calls.Load(), ShouldEqual, 0)
	})
}

func TestPassTracing(t *testing.T) {
	Convey("Given a loop with a recording tracer", t, func() {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		defer func() { _ = tp.Shutdown(context.Background()) }()

		providers := healthyProviders(nil)
		providers.Break = failing[model.BreakCount](fmt.Errorf("offline"))
		loop := rehydrate.New(ranking.NewStore(), providers, rehydrate.WithTracerProvider(tp))

		_, err := loop.Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then one pass span parents one span per pair", func() {
			spans := recorder.Ended()
			var pass sdktrace.ReadOnlySpan
			fetches, failed := 0, 0
			for _, s := range spans {
				switch s.Name() {
				case "rehydrate.pass":
					pass = s
				case "rehydrate.fetch":
					fetches++
					if len(s.Events()) > 0 {
						failed++
					}
				}
			}
			So(pass, ShouldNotBeNil)
			So(fetches, ShouldEqual, model.KindCount*model.TimeRangeCount)
			So(failed, ShouldEqual, model.TimeRangeCount)
			for _, s := range spans {
				if s.Name() == "rehydrate.fetch" {
					So(s.Parent().SpanID().String(), ShouldEqual, pass.SpanContext().SpanID().String())
				}
			}
		})
	})
}

func TestPassUsesClock(t *testing.T) {
	Convey("Given a loop with a fixed clock", t, func() {
		at := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
		store := ranking.NewStore()
		loop := rehydrate.New(store, healthyProviders(nil),
			rehydrate.WithClock(func() time.Time { return at }))

		_, err := loop.Pass(context.Background())
		So(err, ShouldBeNil)

		Convey("Then every swap is stamped with the clock", func() {
			for _, tr := range model.TimeRanges() {
				So(store.Build.For(tr).UpdatedAt(), ShouldEqual, at)
			}
			So(loop.Status().LastPass.Started, ShouldEqual, at)
		})
	})
}
