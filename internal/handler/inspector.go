// Package handler exposes a read-only HTTP inspection surface over a
// finished or in-progress simulation run: book state, account
// snapshots, and the ordered event log. External metrics and export
// collaborators consume these views; nothing here mutates the core.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/proteus-sim/proteus/internal/clock"
	"github.com/proteus-sim/proteus/internal/domain"
	"github.com/proteus-sim/proteus/internal/engine"
	"github.com/proteus-sim/proteus/internal/ledger"
)

// RunView is the read-only state the inspector serves.
type RunView interface {
	Now() int64
	Book() *engine.Book
	Ledger() *ledger.Ledger
	Log() *clock.Log
}

// Inspector holds the handlers for one run view.
type Inspector struct {
	view RunView
}

// NewRouter creates a chi router serving the inspection endpoints with
// request logging.
func NewRouter(view RunView, logger *slog.Logger) chi.Router {
	ins := &Inspector{view: view}

	r := chi.NewRouter()
	r.Use(requestLogging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/book", ins.GetBook)
	r.Get("/book/depth/{side}/{price}", ins.GetDepth)
	r.Get("/accounts", ins.ListAccounts)
	r.Get("/accounts/{owner}", ins.GetAccount)
	r.Get("/events", ins.ListEvents)

	return r
}

// bookResponse is the aggregated book view.
type bookResponse struct {
	TSMs    int64               `json:"ts_ms"`
	BestBid *int64              `json:"best_bid"`
	BestAsk *int64              `json:"best_ask"`
	Bids    []engine.PriceLevel `json:"bids"`
	Asks    []engine.PriceLevel `json:"asks"`
}

// GetBook returns best quotes and the top aggregated price levels.
func (ins *Inspector) GetBook(w http.ResponseWriter, r *http.Request) {
	const topLevels = 10
	book := ins.view.Book()

	resp := bookResponse{
		TSMs: ins.view.Now(),
		Bids: book.TopBids(topLevels),
		Asks: book.TopAsks(topLevels),
	}
	if bid, ok := book.BestBid(); ok {
		resp.BestBid = &bid.Price
	}
	if ask, ok := book.BestAsk(); ok {
		resp.BestAsk = &ask.Price
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetDepth returns the resting quantity at one exact price.
func (ins *Inspector) GetDepth(w http.ResponseWriter, r *http.Request) {
	side := domain.Side(chi.URLParam(r, "side"))
	if !side.Valid() {
		WriteError(w, http.StatusBadRequest, "invalid_side", "side must be buy or sell")
		return
	}
	price, err := strconv.ParseInt(chi.URLParam(r, "price"), 10, 64)
	if err != nil || price <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_price", "price must be a positive integer")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"side":  side,
		"price": price,
		"depth": ins.view.Book().DepthAt(side, price),
	})
}

// ListAccounts returns snapshots of every account.
func (ins *Inspector) ListAccounts(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ins.view.Ledger().SnapshotAll())
}

// GetAccount returns one account snapshot.
func (ins *Inspector) GetAccount(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	account, err := ins.view.Ledger().Snapshot(owner)
	if err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) {
			WriteError(w, http.StatusNotFound, "owner_not_found", "no account for owner "+owner)
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, account)
}

// ListEvents returns the ordered event log, optionally truncated by the
// limit query parameter.
func (ins *Inspector) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := ins.view.Log().Events()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}
	WriteJSON(w, http.StatusOK, events)
}

// requestLogging logs method, path, status, and duration for each request.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
