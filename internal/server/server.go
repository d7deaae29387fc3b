// Package server 提供只读的报价 HTTP 接口。
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stablesats/fee"
	"stablesats/infrastructure/logger"
	"stablesats/market"
	"stablesats/quote"
	"stablesats/unit"
)

// Quoter 由 quote.Service 实现。
type Quoter interface {
	CentsPerSatExchangeMidRate() (unit.CentsPerSat, error)
	Convert(req quote.ConversionRequest) (quote.ConversionResult, error)
	Healthy() error
}

type MidRateResponse struct {
	CentsPerSat string `json:"centsPerSat"`
}

type ConvertResponse struct {
	Amount    int64  `json:"amount"`
	Unit      string `json:"unit"`
	Direction string `json:"direction"`
	Tier      string `json:"tier"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler 路由：/v1/mid-rate /v1/convert /healthz /metrics。
type Handler struct {
	quoter  Quoter
	metrics http.Handler
	log     *logger.Logger
	mux     *http.ServeMux
}

func New(q Quoter, metrics http.Handler, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Handler{quoter: q, metrics: metrics, log: log, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /v1/mid-rate", h.midRate)
	h.mux.HandleFunc("GET /v1/convert", h.convert)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	if metrics != nil {
		h.mux.Handle("GET /metrics", metrics)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) midRate(w http.ResponseWriter, _ *http.Request) {
	mid, err := h.quoter.CentsPerSatExchangeMidRate()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MidRateResponse{CentsPerSat: mid.String()})
}

// convert ?amount=&from=sats|cents&direction=buy|sell&tier=immediate|delayed
// amount 为非负整数。
func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseInt(q.Get("amount"), 10, 64)
	if err != nil || amount < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}
	u, err := quote.ParseUnit(q.Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	dir, err := fee.ParseDirection(q.Get("direction"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	tier := fee.Immediate
	if v := q.Get("tier"); v != "" {
		if tier, err = fee.ParseTier(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	res, err := h.quoter.Convert(quote.ConversionRequest{Amount: amount, Unit: u, Direction: dir, Tier: tier})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{
		Amount:    res.Amount,
		Unit:      res.Unit.String(),
		Direction: dir.String(),
		Tier:      tier.String(),
	})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	if err := h.quoter.Healthy(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrNoPriceAvailable), errors.Is(err, market.ErrStalePrice):
		status = http.StatusServiceUnavailable
	case errors.Is(err, unit.ErrAmountOutOfRange):
		status = http.StatusBadRequest
	default:
		h.log.LogError(err, map[string]interface{}{"action": "http_quote"})
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
