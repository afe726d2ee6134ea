package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/steelmill-kpi/internal/dashboard"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
)

// Handler serves the dashboard REST API
type Handler struct {
	serviceName string
	dash        *dashboard.Dashboard
}

// NewHandler creates an API handler over the lifecycle facade
func NewHandler(serviceName string, dash *dashboard.Dashboard) *Handler {
	return &Handler{
		serviceName: serviceName,
		dash:        dash,
	}
}

// Register wires the API routes onto the given mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.HandleStatus)
	mux.HandleFunc("/api/cards", h.HandleCards)
	mux.HandleFunc("/api/cards/", h.HandleCardDetail)
	mux.HandleFunc("/api/period", h.HandlePeriod)
	mux.HandleFunc("/api/online", h.HandleOnline)
}

// HandleStatus handles GET /api/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		ServiceName:  h.serviceName,
		LoadingState: string(h.dash.State()),
		Period:       string(h.dash.Period()),
		Online:       h.dash.Online(),
		CardCount:    len(h.dash.Cards()),
		Clock:        h.dash.ClockText(),
	})
}

// HandleCards handles GET and POST on /api/cards
func (h *Handler) HandleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCards(w, r)
	case http.MethodPost:
		h.createCard(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	period := h.dash.Period()
	if q := r.URL.Query().Get("period"); q != "" {
		p := kpi.Period(q)
		if !p.IsValid() {
			h.writeError(w, http.StatusBadRequest, "unknown period: "+q, "")
			return
		}
		period = p
	}

	cards := h.dash.Cards()
	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, CardView{
			ID:             c.ID,
			Title:          c.Title,
			Type:           string(c.Type),
			Position:       c.Position,
			Actual:         c.Data.Actual,
			Benchmark:      c.Data.Benchmark,
			Percentage:     c.Data.Percentage,
			Value:          kpi.FormatValue(c.Type, c.Data.Actual, period),
			Target:         kpi.FormatValue(c.Type, c.Data.Benchmark, period),
			PercentageText: kpi.FormatPercentage(c.Data.Percentage),
			Status:         kpi.BandFor(c.Data.Percentage).Status,
			Color:          kpi.BandFor(c.Data.Percentage).Color,
		})
	}

	h.writeJSON(w, http.StatusOK, CardListResponse{
		Period:      string(period),
		PeriodLabel: period.Label(),
		Cards:       views,
	})
}

func (h *Handler) createCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	c, err := h.dash.Create(r.Context(), req.Title, kpi.MetricType(req.Type))
	if err != nil {
		// c.ID set means the optimistic mutation stands and only the
		// remote mirror failed; report 202 in that case.
		h.writeOpError(w, err, c.ID != "")
		return
	}

	h.writeJSON(w, http.StatusCreated, c)
}

// HandleCardDetail handles PATCH, DELETE and swap on /api/cards/{id}
func (h *Handler) HandleCardDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cards/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Card ID required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "swap" && r.Method == http.MethodPost:
		h.swapCard(w, r, id)
	case action == "" && r.Method == http.MethodPatch:
		h.updateTitle(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteCard(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) updateTitle(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := h.dash.UpdateTitle(r.Context(), id, req.Title); err != nil {
		h.writeOpError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) swapCard(w http.ResponseWriter, r *http.Request, id string) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.With == "" {
		h.writeError(w, http.StatusBadRequest, "swap target required", "")
		return
	}
	if err := h.dash.Reorder(r.Context(), id, req.With); err != nil {
		h.writeOpError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.dash.Delete(r.Context(), id); err != nil {
		h.writeOpError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePeriod handles PUT /api/period
func (h *Handler) HandlePeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	p := kpi.Period(req.Period)
	if !p.IsValid() {
		h.writeError(w, http.StatusBadRequest, "unknown period: "+req.Period, "")
		return
	}
	h.dash.SetPeriod(p)
	w.WriteHeader(http.StatusNoContent)
}

// HandleOnline handles PUT /api/online, toggling the connectivity flag
func (h *Handler) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	h.dash.SetOnline(r.Context(), req.Online)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeOpError(w http.ResponseWriter, err error, optimisticApplied bool) {
	var opErr *dashboard.OpError
	kind := ""
	if errors.As(err, &opErr) {
		kind = string(opErr.Kind)
	}

	status := http.StatusBadGateway
	if optimisticApplied {
		// Local mutation stands; only the remote mirror failed
		status = http.StatusAccepted
	} else if strings.Contains(err.Error(), "not found") {
		status = http.StatusNotFound
	} else if strings.Contains(err.Error(), "title length") || strings.Contains(err.Error(), "metric type") {
		status = http.StatusBadRequest
	}

	h.writeError(w, status, err.Error(), kind)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, kind string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode API response")
	}
}
