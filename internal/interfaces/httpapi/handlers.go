package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"livefeed/internal/application/service"
	"livefeed/internal/domain"
	"livefeed/internal/interfaces/stream"
)

const maxBodyBytes = 1 << 20

// GET /api/price?symbol=BTC&quote=USD&assetType=crypto
func (h *handler) getPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	update, err := h.prices.GetPrice(r.Context(), domain.FeedQuery{
		Symbol:        q.Get("symbol"),
		QuoteCurrency: q.Get("quote"),
		AssetType:     domain.AssetType(q.Get("assetType")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *handler) listStrategies(w http.ResponseWriter, r *http.Request) {
	set, err := h.strategies.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.CloneStrategies(set))
}

func (h *handler) addStrategy(w http.ResponseWriter, r *http.Request) {
	var in domain.StrategyInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.strategies.Add(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *handler) updateStrategy(w http.ResponseWriter, r *http.Request) {
	var patch domain.StrategyPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.strategies.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DELETE of an unknown id is not an error; removed reports 0.
func (h *handler) removeStrategy(w http.ResponseWriter, r *http.Request) {
	n, err := h.strategies.Remove(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// GET /api/tokens?query=pepe&chain=base&capTier=top
func (h *handler) discoverTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.tokens.Discover(r.Context(), service.DiscoverQuery{
		Query:   q.Get("query"),
		Chain:   q.Get("chain"),
		CapTier: domain.CapTier(q.Get("capTier")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) streamPrices(w http.ResponseWriter, r *http.Request) {
	stream.ServeSSE(w, r, h.priceStream)
}

func (h *handler) streamStrategies(w http.ResponseWriter, r *http.Request) {
	stream.ServeSSE(w, r, h.strategyStream)
}

func (h *handler) wsPrices(w http.ResponseWriter, r *http.Request) {
	stream.ServeWS(w, r, h.priceStream)
}

func (h *handler) wsStrategies(w http.ResponseWriter, r *http.Request) {
	stream.ServeWS(w, r, h.strategyStream)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}
