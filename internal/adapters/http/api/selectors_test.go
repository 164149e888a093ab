package api

import (
	"net/url"
	"testing"

	"github.com/okian/ranked/internal/domain/model"
)

func TestParseSelectors(t *testing.T) {
	tests := []struct {
		query   string
		want    selectors
		wantErr bool
	}{
		{"", selectors{model.Break, model.All}, false},
		{"type=build", selectors{model.Build, model.All}, false},
		{"type=play_ticks&time_range=year", selectors{model.PlayTicks, model.LastYear}, false},
		{"time_range=DAY", selectors{model.Break, model.LastDay}, false},
		{"type=", selectors{model.Break, model.All}, false},
		{"type=deaths", selectors{}, true},
		{"time_range=fortnight", selectors{}, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, err := parseSelectors(q)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.query, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%q: got %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestGetErrorType(t *testing.T) {
	tests := map[int]string{
		400: "client_error",
		404: "not_found",
		500: "server_error",
		503: "unavailable",
		200: "unknown",
	}
	for status, want := range tests {
		if got := getErrorType(status); got != want {
			t.Errorf("getErrorType(%d) = %q, want %q", status, got, want)
		}
	}
}
