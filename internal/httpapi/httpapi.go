// Package httpapi is the thin HTTP front end: it parses query
// parameters, calls the Client, and assembles the hypermedia envelope.
// It holds no business logic and is the only layer aware of HTTP
// concerns (status codes, query strings).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blocksetgw/gateway/internal/chain"
	"github.com/blocksetgw/gateway/internal/chainerr"
)

// Core is the subset of *client.Client the HTTP layer depends on,
// narrowed to an interface so handlers can be tested without a real
// provider fan-out.
type Core interface {
	GetBlockchain(ctx context.Context, chainID string) (chain.Blockchain, error)
	GetBlockchains(ctx context.Context, testnet bool) ([]chain.Blockchain, error)
	GetTransactions(ctx context.Context, addresses []string, chainID string, startHeight, endHeight int64, maxPageSize int, includeRaw bool) (chain.HeightPaginatedResponse[chain.Transaction], error)
}

// NewRouter builds the chi router serving the three endpoints of
// spec.md §6.
func NewRouter(core Core, log zerolog.Logger) http.Handler {
	h := &handler{core: core, log: log}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/blockchains", h.listBlockchains)
	r.Get("/blockchains/{blockchain_id}", h.getBlockchain)
	r.Get("/transactions", h.getTransactions)
	return r
}

type handler struct {
	core Core
	log  zerolog.Logger
}

type contextKey int

const requestIDKey contextKey = 0

// requestIDMiddleware stamps every request with a UUID, echoed back as
// X-Request-Id and threaded into log lines so an upstream failure can be
// correlated back to the request that triggered it.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestLogger(log zerolog.Logger, ctx context.Context) zerolog.Logger {
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return log
	}
	return log.With().Str("request_id", id).Logger()
}

type embeddedBlockchains struct {
	Blockchains []chain.Blockchain `json:"blockchains"`
}

type blockchainsResponse struct {
	Embedded embeddedBlockchains `json:"_embedded"`
	Links    struct{}            `json:"_links"`
}

func (h *handler) listBlockchains(w http.ResponseWriter, r *http.Request) {
	testnet := parseBoolParam(r.URL.Query(), "testnet", false)

	chains, err := h.core.GetBlockchains(r.Context(), testnet)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, blockchainsResponse{Embedded: embeddedBlockchains{Blockchains: chains}})
}

func (h *handler) getBlockchain(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "blockchain_id")
	b, err := h.core.GetBlockchain(r.Context(), chainID)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type embeddedTransactions struct {
	Transactions []chain.Transaction `json:"transactions"`
}

type nextLink struct {
	Href string `json:"href"`
}

type transactionsLinks struct {
	Next *nextLink `json:"next,omitempty"`
}

type transactionsResponse struct {
	Embedded embeddedTransactions `json:"_embedded"`
	Links    transactionsLinks    `json:"_links"`
}

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chainID := q.Get("blockchain_id")
	addresses := q["address"]

	if chainID == "" || len(addresses) == 0 {
		h.writeError(w, r.Context(), chainerr.InvalidArgument("blockchain_id and at least one address are required"))
		return
	}

	startHeight, err := parseIntParam(q, "start_height", 0)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}
	endHeight, err := parseIntParam(q, "end_height", 0)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}
	maxPageSize, err := parseIntParam(q, "max_page_size", 0)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}
	includeRaw := parseBoolParam(q, "include_raw", false)

	// Omitted or non-positive end_height defaults to the chain's current
	// verified_height (spec.md §6).
	if endHeight <= 0 {
		b, err := h.core.GetBlockchain(r.Context(), chainID)
		if err != nil {
			h.writeError(w, r.Context(), err)
			return
		}
		endHeight = b.VerifiedHeight
	}

	page, err := h.core.GetTransactions(r.Context(), addresses, chainID, startHeight, endHeight, int(maxPageSize), includeRaw)
	if err != nil {
		h.writeError(w, r.Context(), err)
		return
	}

	resp := transactionsResponse{Embedded: embeddedTransactions{Transactions: page.Contents}}
	if page.HasMore {
		resp.Links.Next = &nextLink{Href: nextHref(chainID, addresses, page)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func nextHref(chainID string, addresses []string, page chain.HeightPaginatedResponse[chain.Transaction]) string {
	v := url.Values{}
	v.Set("blockchain_id", chainID)
	for _, a := range addresses {
		v.Add("address", a)
	}
	if page.NextStartHeight != nil {
		v.Set("start_height", strconv.FormatInt(*page.NextStartHeight, 10))
	}
	if page.NextEndHeight != nil {
		v.Set("end_height", strconv.FormatInt(*page.NextEndHeight, 10))
	}
	return "/transactions?" + v.Encode()
}

func parseBoolParam(q url.Values, key string, def bool) bool {
	v := q.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseIntParam(q url.Values, key string, def int64) (int64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, chainerr.InvalidArgument("invalid integer for " + key + ": " + v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a chainerr.Error to the status codes in spec.md §7.
func (h *handler) writeError(w http.ResponseWriter, ctx context.Context, err error) {
	log := requestLogger(h.log, ctx)

	var ce *chainerr.Error
	if !errors.As(err, &ce) {
		log.Error().Err(err).Msg("unclassified error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	switch ce.Kind {
	case chainerr.KindUnsupportedChain:
		writeJSON(w, http.StatusNotFound, errorBody{Error: ce.Message})
	case chainerr.KindInvalidArgument:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ce.Message})
	case chainerr.KindUpstreamHTTP, chainerr.KindUpstreamDecode, chainerr.KindUpstreamRateLimit:
		log.Warn().Err(ce).Msg("upstream failure")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: ce.Message})
	case chainerr.KindCancelled:
		// Caller disconnected; no response to write.
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: ce.Message})
	}
}

type errorBody struct {
	Error string `json:"error"`
}
