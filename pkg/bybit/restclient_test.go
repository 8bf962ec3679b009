package bybit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(BybitResponse{RetCode: 0, RetMsg: "OK", Result: raw})
}

// go test -v --run ^TestGetInstrumentsPaginates$
func TestGetInstrumentsPaginates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v5/market/instruments-info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "linear" {
			t.Errorf("category = %q", got)
		}

		switch r.URL.Query().Get("cursor") {
		case "":
			writeResult(t, w, InstrumentListResponse{
				Category:       "linear",
				NextPageCursor: "page2",
				List: []Instrument{
					{Symbol: "BTCUSDT", Status: "Trading"},
					{Symbol: "ETHUSDT", Status: "Trading"},
				},
			})
		case "page2":
			writeResult(t, w, InstrumentListResponse{
				Category: "linear",
				List:     []Instrument{{Symbol: "NEWUSDT", Status: "PreLaunch"}},
			})
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instruments, err := client.GetInstruments(ctx, "linear")
	if err != nil {
		t.Fatalf("GetInstruments returned error: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
	if len(instruments) != 3 {
		t.Fatalf("expected 3 instruments, got %d", len(instruments))
	}
	if instruments[2].Symbol != "NEWUSDT" || instruments[2].Trading() {
		t.Errorf("unexpected last instrument: %+v", instruments[2])
	}
}

// go test -v --run ^TestGetInstrumentsRetCode$
func TestGetInstrumentsRetCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(BybitResponse{RetCode: 10001, RetMsg: "params error"})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 5*time.Second)
	if _, err := client.GetInstruments(context.Background(), "linear"); err == nil {
		t.Fatal("expected error for non-zero retCode")
	}
}

// go test -v --run ^TestGetServerTime$
func TestGetServerTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/time" {
			http.NotFound(w, r)
			return
		}
		writeResult(t, w, ServerTimeResponse{TimeSecond: "1700000000", TimeNano: "1700000000000000000"})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 5*time.Second)
	resp, err := client.GetServerTime(context.Background())
	if err != nil {
		t.Fatalf("GetServerTime returned error: %v", err)
	}
	if resp.TimeSecond != "1700000000" {
		t.Errorf("TimeSecond = %q", resp.TimeSecond)
	}
}

// go test -v --run ^TestGetServerTimeHTTPError$
func TestGetServerTimeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, 5*time.Second)
	if _, err := client.GetServerTime(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}
