package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/proteus-sim/proteus/internal/domain"
	"github.com/proteus-sim/proteus/internal/ledger"
	"github.com/proteus-sim/proteus/internal/sim"
)

// newDrivenRun builds a run with one resting ask, one crossing buy, and
// a resting bid left on the book, then drives it to completion.
func newDrivenRun(t *testing.T) *sim.Run {
	t.Helper()

	run, err := sim.NewRun(sim.Params{
		Seed:       42,
		Convention: ledger.AverageCost,
		Latency:    sim.ConstantLatency{SubmissionMS: 1, FillMS: 1},
		Accounts: []ledger.AccountSpec{
			{Owner: "mm-1", Cash: 100000, Inventory: 100},
			{Owner: "inf-1", Cash: 50000},
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intents := []domain.OrderIntent{
		{Owner: "mm-1", Side: domain.SideSell, Price: 101, Quantity: 10, TIF: domain.TIFGoodTillCancel},
		{Owner: "inf-1", Side: domain.SideBuy, Price: 101, Quantity: 4, TIF: domain.TIFGoodTillCancel},
		{Owner: "inf-1", Side: domain.SideBuy, Price: 99, Quantity: 5, TIF: domain.TIFGoodTillCancel},
	}
	for _, intent := range intents {
		if _, err := run.Submit(intent); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := run.Drive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return run
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(newDrivenRun(t), logger))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	if status := getJSON(t, srv.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestGetBook(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		TSMs    int64  `json:"ts_ms"`
		BestBid *int64 `json:"best_bid"`
		BestAsk *int64 `json:"best_ask"`
		Bids    []struct {
			Price    int64 `json:"price"`
			Quantity int64 `json:"quantity"`
			Orders   int   `json:"order_count"`
		} `json:"bids"`
		Asks []struct {
			Price    int64 `json:"price"`
			Quantity int64 `json:"quantity"`
			Orders   int   `json:"order_count"`
		} `json:"asks"`
	}
	if status := getJSON(t, srv.URL+"/book", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	if body.BestBid == nil || *body.BestBid != 99 {
		t.Errorf("best_bid = %v, want 99", body.BestBid)
	}
	if body.BestAsk == nil || *body.BestAsk != 101 {
		t.Errorf("best_ask = %v, want 101", body.BestAsk)
	}
	if len(body.Bids) != 1 || body.Bids[0].Quantity != 5 {
		t.Errorf("bids = %+v, want one level of 5 @ 99", body.Bids)
	}
	if len(body.Asks) != 1 || body.Asks[0].Quantity != 6 {
		t.Errorf("asks = %+v, want one level of 6 @ 101", body.Asks)
	}
}

func TestGetDepth(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Side  string `json:"side"`
		Price int64  `json:"price"`
		Depth int64  `json:"depth"`
	}
	if status := getJSON(t, srv.URL+"/book/depth/sell/101", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Depth != 6 {
		t.Errorf("depth = %d, want 6", body.Depth)
	}

	if status := getJSON(t, srv.URL+"/book/depth/buy/50", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Depth != 0 {
		t.Errorf("depth = %d, want 0", body.Depth)
	}
}

func TestGetDepth_Invalid(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/book/depth/hold/101",
		"/book/depth/buy/zero",
		"/book/depth/buy/-5",
	} {
		if status := getJSON(t, srv.URL+path, nil); status != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, status)
		}
	}
}

func TestListAccounts(t *testing.T) {
	srv := newTestServer(t)

	var accounts []ledger.Account
	if status := getJSON(t, srv.URL+"/accounts", &accounts); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(accounts) != 2 {
		t.Fatalf("len(accounts) = %d, want 2", len(accounts))
	}
	// Sorted by owner: inf-1 bought 4 @ 101.
	if accounts[0].Owner != "inf-1" || accounts[0].Cash != 50000-404 || accounts[0].Inventory != 4 {
		t.Errorf("accounts[0] = %+v", accounts[0])
	}
	if accounts[1].Owner != "mm-1" || accounts[1].Cash != 100000+404 || accounts[1].Inventory != 96 {
		t.Errorf("accounts[1] = %+v", accounts[1])
	}
}

func TestGetAccount(t *testing.T) {
	srv := newTestServer(t)

	var account ledger.Account
	if status := getJSON(t, srv.URL+"/accounts/mm-1", &account); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if account.Owner != "mm-1" || account.Inventory != 96 {
		t.Errorf("account = %+v", account)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if status := getJSON(t, srv.URL+"/accounts/nobody", &body); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if body.Error != "owner_not_found" {
		t.Errorf("error code = %q, want %q", body.Error, "owner_not_found")
	}
}

func TestListEvents(t *testing.T) {
	srv := newTestServer(t)

	var events []json.RawMessage
	if status := getJSON(t, srv.URL+"/events", &events); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	// Three order events plus one fill event.
	if len(events) != 4 {
		t.Errorf("len(events) = %d, want 4", len(events))
	}

	if status := getJSON(t, srv.URL+"/events?limit=2", &events); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}

	if status := getJSON(t, srv.URL+"/events?limit=-1", nil); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}
