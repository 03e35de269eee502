package hydromet

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchDailyFlows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/daily" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("station") != "08NM116" || q.Get("start") != "1995-01-01" || q.Get("end") != "1995-01-03" {
			t.Errorf("query = %v", q)
		}
		if q.Get("apiKey") != "secret" {
			t.Errorf("apiKey = %q", q.Get("apiKey"))
		}
		w.Write([]byte(`{"observations":[
			{"stationId":"08NM116","date":"1995-01-01","value":1.2,"symbol":""},
			{"stationId":"","date":"1995-01-02","value":null,"symbol":"B"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	start, _ := time.Parse("2006-01-02", "1995-01-01")
	end, _ := time.Parse("2006-01-02", "1995-01-03")
	flows, err := client.FetchDailyFlows("08NM116", start, end)
	if err != nil {
		t.Fatalf("FetchDailyFlows: %v", err)
	}

	if len(flows) != 2 {
		t.Fatalf("len(flows) = %d, want 2", len(flows))
	}
	if !flows[0].Value.Valid || flows[0].Value.Float64 != 1.2 {
		t.Errorf("first value = %+v", flows[0].Value)
	}
	// blank station falls back to the requested one, null value stays null
	if flows[1].StationID != "08NM116" {
		t.Errorf("StationID = %q", flows[1].StationID)
	}
	if flows[1].Value.Valid || flows[1].Symbol != "B" {
		t.Errorf("second flow = %+v", flows[1])
	}
}

func TestFetchDailyFlowsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"observations":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	start, _ := time.Parse("2006-01-02", "1995-01-01")
	flows, err := client.FetchDailyFlows("A", start, start)
	if err != nil {
		t.Fatalf("FetchDailyFlows: %v", err)
	}
	if len(flows) != 0 {
		t.Errorf("len(flows) = %d, want 0", len(flows))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchDailyFlowsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	start, _ := time.Parse("2006-01-02", "1995-01-01")
	if _, err := client.FetchDailyFlows("A", start, start); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}
