package trends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/streamwatch/report-service/internal/config"
)

func trendingServer(t *testing.T, tvNames, movieTitles []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/trending/tv/day":
			fmt.Fprint(w, `{"results":[`+jsonItems("name", tvNames)+`]}`)
		case "/trending/movie/day":
			fmt.Fprint(w, `{"results":[`+jsonItems("title", movieTitles)+`]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func jsonItems(field string, values []string) string {
	out := ""
	for i, value := range values {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"%s":%q}`, field, value)
	}
	return out
}

func testConfig() config.TrendsConfig {
	return config.TrendsConfig{
		BearerToken:         "test-token",
		FetchTimeoutSeconds: 5,
		LimitEach:           2,
	}
}

func TestFetchTrendingWithoutCredential(t *testing.T) {
	server, requests := trendingServer(t, []string{"Severance"}, nil)
	cfg := testConfig()
	cfg.BearerToken = ""
	client := NewClientWithBaseURL(cfg, server.URL)

	if client.Configured() {
		t.Error("Configured() = true without credential")
	}
	_, err := client.FetchTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchTrending() error = %v, want ErrUnavailable", err)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("requests = %d, want 0 without credential", got)
	}
}

func TestFetchTrendingLimitsAndOrder(t *testing.T) {
	server, _ := trendingServer(t,
		[]string{"Severance", "The Bear", "Extra Show"},
		[]string{"Dune", "Oppenheimer", "Extra Movie"},
	)
	client := NewClientWithBaseURL(testConfig(), server.URL)

	titles, err := client.FetchTrending(context.Background())
	if err != nil {
		t.Fatalf("FetchTrending() error = %v", err)
	}
	want := []string{"Severance", "The Bear", "Dune", "Oppenheimer"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("FetchTrending() = %v, want %v", titles, want)
	}
}

func TestFetchTrendingDeduplicates(t *testing.T) {
	server, _ := trendingServer(t,
		[]string{"Dune", "Severance"},
		[]string{"Dune", "Oppenheimer"},
	)
	client := NewClientWithBaseURL(testConfig(), server.URL)

	titles, err := client.FetchTrending(context.Background())
	if err != nil {
		t.Fatalf("FetchTrending() error = %v", err)
	}
	want := []string{"Dune", "Severance", "Oppenheimer"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("FetchTrending() = %v, want %v", titles, want)
	}
}

func TestFetchTrendingUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := NewClientWithBaseURL(testConfig(), server.URL)

	_, err := client.FetchTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchTrending() error = %v, want ErrUnavailable", err)
	}
}

func TestFetchTrendingBadCredential(t *testing.T) {
	server, _ := trendingServer(t, []string{"Severance"}, nil)
	cfg := testConfig()
	cfg.BearerToken = "wrong"
	client := NewClientWithBaseURL(cfg, server.URL)

	_, err := client.FetchTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchTrending() error = %v, want ErrUnavailable", err)
	}
}
