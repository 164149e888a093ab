package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	service "github.com/okian/ranked/internal/app"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/ranking"
	"github.com/okian/ranked/internal/domain/rehydrate"
	"github.com/okian/ranked/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var (
	steve = model.Player{UUID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Steve"}
	alex  = model.Player{UUID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "alex"}
	herob = model.Player{UUID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Name: "Herobrine"}
)

func fixed[V model.Value](records ...model.Record[V]) rehydrate.ProviderFunc[V] {
	return func(context.Context, model.TimeRange) ([]model.Record[V], error) {
		return records, nil
	}
}

func providers() rehydrate.Providers {
	return rehydrate.Providers{
		Break: fixed(
			model.Record[model.BreakCount]{Player: steve, Value: 50},
			model.Record[model.BreakCount]{Player: alex, Value: 50},
			model.Record[model.BreakCount]{Player: herob, Value: 10},
		),
		Build:     fixed(model.Record[model.BuildCount]{Player: alex, Value: 3}),
		PlayTicks: fixed[model.PlayTickCount](),
		Vote:      fixed(model.Record[model.VoteCount]{Player: herob, Value: 1}),
	}
}

// started returns a running service whose first pass has completed.
func started(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(append([]service.Option{
		service.WithProviders(providers()),
		service.WithRehydrateInterval(time.Hour),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	deadline := time.Now().Add(5 * time.Second)
	for {
		loop, _ := svc.GetStats()["loop"].(map[string]any)
		if loop != nil && loop["passes"].(uint64) > 0 {
			return svc
		}
		if time.Now().After(deadline) {
			t.Fatal("first pass did not complete")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Healthy(), ShouldBeFalse)
			So(svc.Done(), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["interval"], ShouldEqual, rehydrate.DefaultInterval.String())
		})

		Convey("Then every ranking is empty before the first pass", func() {
			page, err := svc.Page(context.Background(), model.Break, model.All, 0, 20)
			So(err, ShouldBeNil)
			So(page, ShouldBeEmpty)
		})
	})

	Convey("Given invalid option values", t, func() {
		svc := service.New(
			service.WithRehydrateInterval(-time.Second),
			service.WithFetchTimeout(0),
			service.WithRehydrateConcurrency(-1),
			service.WithStore(nil),
		)

		Convey("Then the defaults are kept", func() {
			stats := svc.GetStats()
			So(stats["interval"], ShouldEqual, rehydrate.DefaultInterval.String())
			So(stats["fetchTimeout"], ShouldEqual, rehydrate.DefaultFetchTimeout.String())
			So(stats["concurrency"], ShouldEqual, rehydrate.DefaultConcurrency)
			So(svc.Store(), ShouldNotBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service without providers", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it refuses to start", func() {
				So(errors.Is(err, rehydrate.ErrNoProvider), ShouldBeTrue)
				So(svc.Healthy(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a started service", t, func() {
		svc := started(t)

		Convey("Then it is healthy", func() {
			So(svc.Healthy(), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("Then starting it again is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})

		Convey("When it is stopped", func() {
			done := svc.Done()
			svc.Stop()

			Convey("Then the loop ends cleanly", func() {
				So(<-done, ShouldBeNil)
				So(svc.Healthy(), ShouldBeFalse)
			})

			Convey("Then stopping again is a no-op", func() {
				svc.Stop()
			})
		})
	})

	Convey("Given a start context that is later cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		svc := service.New(service.WithProviders(providers()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		cancel()

		Convey("Then the loop keeps running until Stop", func() {
			time.Sleep(20 * time.Millisecond)
			So(svc.Healthy(), ShouldBeTrue)
		})
	})
}

func TestService_Fatal(t *testing.T) {
	Convey("Given a provider that panics", t, func() {
		p := providers()
		p.Vote = rehydrate.ProviderFunc[model.VoteCount](func(context.Context, model.TimeRange) ([]model.Record[model.VoteCount], error) {
			panic("corrupt provider state")
		})
		svc := service.New(service.WithProviders(p))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then Done carries a fatal error", func() {
			select {
			case err := <-svc.Done():
				So(service.IsFatal(err), ShouldBeTrue)
			case <-time.After(5 * time.Second):
				So("loop did not terminate", ShouldBeEmpty)
			}
			So(svc.Healthy(), ShouldBeFalse)
			loop := svc.GetStats()["loop"].(map[string]any)
			So(loop["error"], ShouldContainSubstring, "corrupt provider state")
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service after its first pass", t, func() {
		svc := started(t)
		ctx := context.Background()

		Convey("When paging the break ranking", func() {
			page, err := svc.Page(ctx, model.Break, model.All, 0, 20)
			So(err, ShouldBeNil)

			Convey("Then ties share a rank and are ordered by uuid", func() {
				So(len(page), ShouldEqual, 3)
				So(page[0].Player.Name, ShouldEqual, "Steve")
				So(page[0].Rank, ShouldEqual, 1)
				So(page[1].Player.Name, ShouldEqual, "alex")
				So(page[1].Rank, ShouldEqual, 1)
				So(page[2].Rank, ShouldEqual, 3)
				So(page[2].Value, ShouldEqual, 10)
			})
		})

		Convey("When paging past the end", func() {
			page, err := svc.Page(ctx, model.Break, model.All, 10, 20)
			So(err, ShouldBeNil)
			So(page, ShouldBeEmpty)
		})

		Convey("When paging an unknown kind", func() {
			_, err := svc.Page(ctx, model.Kind(42), model.All, 0, 20)
			So(errors.Is(err, model.ErrUnknownKind), ShouldBeTrue)
		})

		Convey("When looking up a ranked player", func() {
			entry, err := svc.PlayerRank(ctx, model.Build, model.LastDay, alex.UUID)
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 1)
			So(entry.Value, ShouldEqual, 3)
		})

		Convey("When looking up a player without a value", func() {
			_, err := svc.PlayerRank(ctx, model.Build, model.All, steve.UUID)

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "kind=build, time-range=all")
			})
		})

		Convey("When looking up with an unknown time range", func() {
			_, err := svc.PlayerRank(ctx, model.Build, model.TimeRange(-1), alex.UUID)
			So(errors.Is(err, model.ErrUnknownTimeRange), ShouldBeTrue)
		})

		Convey("When searching players", func() {
			found, err := svc.SearchPlayers(ctx, "E", 20)
			So(err, ShouldBeNil)

			Convey("Then matches ignore case, are unique and sorted by name", func() {
				names := make([]string, len(found))
				for i, p := range found {
					names[i] = p.Name
				}
				So(names, ShouldResemble, []string{"alex", "Herobrine", "Steve"})
			})

			Convey("Then the limit is applied", func() {
				found, err := svc.SearchPlayers(ctx, "e", 1)
				So(err, ShouldBeNil)
				So(len(found), ShouldEqual, 1)
				So(found[0].Name, ShouldEqual, "alex")
			})

			Convey("Then a blank query is rejected", func() {
				_, err := svc.SearchPlayers(ctx, "  ", 5)
				So(errors.Is(err, service.ErrEmptyQuery), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats()
			rankings := stats["rankings"].(map[string]map[string]int)

			Convey("Then sizes are reported per pair", func() {
				So(rankings["break"]["all"], ShouldEqual, 3)
				So(rankings["play_ticks"]["week"], ShouldEqual, 0)
				loop := stats["loop"].(map[string]any)
				So(loop["refreshed"], ShouldEqual, model.KindCount*model.TimeRangeCount)
				So(loop["failed"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_SharedStore(t *testing.T) {
	Convey("Given a store shared with the service", t, func() {
		store := ranking.NewStore()
		svc := started(t, service.WithStore(store))

		Convey("Then the loop writes into it", func() {
			So(svc.Store(), ShouldEqual, store)
			So(store.Vote.For(model.All).Len(), ShouldEqual, 1)
		})
	})
}

func TestService_PassTimestamps(t *testing.T) {
	Convey("Given a service whose first pass completed", t, func() {
		before := time.Now()
		svc := started(t)
		loop := svc.GetStats()["loop"].(map[string]any)

		Convey("Then pass times keep sub-second precision", func() {
			passStarted, err := time.Parse(time.RFC3339Nano, loop["lastPassStarted"].(string))
			So(err, ShouldBeNil)
			passFinished, err := time.Parse(time.RFC3339Nano, loop["lastPassFinished"].(string))
			So(err, ShouldBeNil)
			So(passStarted.Before(before), ShouldBeFalse)
			So(passFinished.Before(passStarted), ShouldBeFalse)
		})
	})
}
