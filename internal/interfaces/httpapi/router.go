// Package httpapi exposes the price, strategy and token operations over
// HTTP, plus SSE and websocket streams.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"livefeed/internal/application/broadcast"
	"livefeed/internal/application/service"
	"livefeed/internal/domain"
	"livefeed/internal/interfaces/stream"
)

type Deps struct {
	Prices      *service.PriceService
	Strategies  *service.StrategyRepository
	Tokens      *service.TokenService
	PriceHub    *broadcast.Hub[domain.PriceUpdate]
	StrategyHub *broadcast.Hub[[]domain.Strategy]

	// optional
	Metrics  http.Handler
	Observer RequestObserver
}

type handler struct {
	prices     *service.PriceService
	strategies *service.StrategyRepository
	tokens     *service.TokenService

	priceStream    stream.Source
	strategyStream stream.Source
}

func NewRouter(d Deps) *mux.Router {
	h := &handler{
		prices:         d.Prices,
		strategies:     d.Strategies,
		tokens:         d.Tokens,
		priceStream:    stream.FromHub(d.PriceHub),
		strategyStream: stream.FromStrategies(d.Strategies, d.StrategyHub.Done()),
	}

	r := mux.NewRouter()
	r.Use(accessLog(d.Observer))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/price", h.getPrice).Methods(http.MethodGet)
	api.HandleFunc("/prices/stream", h.streamPrices).Methods(http.MethodGet)
	api.HandleFunc("/strategies", h.listStrategies).Methods(http.MethodGet)
	api.HandleFunc("/strategies", h.addStrategy).Methods(http.MethodPost)
	api.HandleFunc("/strategies/stream", h.streamStrategies).Methods(http.MethodGet)
	api.HandleFunc("/strategies/{id}", h.updateStrategy).Methods(http.MethodPatch)
	api.HandleFunc("/strategies/{id}", h.removeStrategy).Methods(http.MethodDelete)
	api.HandleFunc("/tokens", h.discoverTokens).Methods(http.MethodGet)

	r.HandleFunc("/ws/prices", h.wsPrices).Methods(http.MethodGet)
	r.HandleFunc("/ws/strategies", h.wsStrategies).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}
	return r
}
