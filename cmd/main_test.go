package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/ranked/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ranked.db")
	cfg.RehydrateInterval = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.LogLevel = "error"
	return cfg
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRun(t *testing.T) {
	convey.Convey("Given the application running on a local listener", t, func() {
		cfg := testConfig(t)
		cfg.CORSOrigins = []string{"https://stats.example.org"}
		cfg.MetricsNamespace = "ranked_test"
		cfg.MetricsLabels = map[string]string{"deployment": "ci"}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		var runErr error
		finished := make(chan struct{})
		go func() {
			runErr = run(ctx, cfg, ln)
			close(finished)
		}()

		deadline := time.Now().Add(5 * time.Second)
		for {
			if code, _ := getQuiet(base + "/healthz"); code == http.StatusOK {
				break
			}
			if time.Now().After(deadline) {
				cancel()
				t.Fatal("server did not become healthy")
			}
			time.Sleep(20 * time.Millisecond)
		}

		convey.Convey("Then the API serves rankings", func() {
			code, body := get(t, base+"/ranking?type=build&time_range=week")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldStartWith, "[")
		})

		convey.Convey("Then the configured limit is enforced", func() {
			code, body := get(t, base+"/ranking?limit=5000")
			convey.So(code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(body, convey.ShouldContainSubstring, "5000 is too large for a limit")
		})

		convey.Convey("Then docs and metrics are served", func() {
			code, _ := get(t, base+"/openapi.yaml")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			code, body := get(t, base+"/metrics")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, "go_goroutines")
			convey.So(body, convey.ShouldContainSubstring, `ranked_test_cache_rehydrate_loop_alive{deployment="ci"} 1`)
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then run returns cleanly", func() {
				select {
				case <-finished:
					convey.So(runErr, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		cancel()
		<-finished
	})
}

func getQuiet(url string) (int, error) {
	resp, err := http.Get(url) //nolint:noctx // test helper
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func TestRunRejectsBadProvider(t *testing.T) {
	convey.Convey("Given an http provider without a base url", t, func() {
		cfg := testConfig(t)
		cfg.Provider = config.ProviderHTTP
		cfg.RemoteBaseURL = ""

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), cfg, nil)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "remote provider")
		})
	})

	convey.Convey("Given an unwritable sqlite path", t, func() {
		cfg := testConfig(t)
		cfg.SQLitePath = filepath.Join(t.TempDir(), "missing", "dir", "ranked.db")

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), cfg, nil)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
