package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/hermes/internal/domain"
	"github.com/efreitasn/hermes/internal/service"
)

// ReportHandler handles HTTP requests for run reports.
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// goodStatsResponse is one good's line in a day response.
type goodStatsResponse struct {
	Good        string `json:"good"`
	SellOrders  int    `json:"sell_orders"`
	BuyOrders   int    `json:"buy_orders"`
	Trades      int    `json:"trades"`
	UnitsTraded int64  `json:"units_traded"`
	Value       int64  `json:"value"`
	Failed      int    `json:"failed_settlements"`
}

// dayResponse is the JSON response for GET /days/{day}.
type dayResponse struct {
	Day         int                 `json:"day"`
	SellOrders  int                 `json:"sell_orders"`
	BuyOrders   int                 `json:"buy_orders"`
	SellValue   int64               `json:"sell_value"`
	BuyValue    int64               `json:"buy_value"`
	Trades      int                 `json:"trades"`
	UnitsTraded int64               `json:"units_traded"`
	TradedValue int64               `json:"traded_value"`
	Failed      int                 `json:"failed_settlements"`
	TotalMoney  int64               `json:"total_money"`
	StartedAt   string              `json:"started_at"`
	DurationMS  int64               `json:"duration_ms"`
	Goods       []goodStatsResponse `json:"goods,omitempty"`
}

// dayListResponse is the JSON response for GET /days.
type dayListResponse struct {
	Days  []dayResponse `json:"days"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// agentResponse is the JSON response for GET /agents/{agent_id}.
type agentResponse struct {
	AgentID        int64            `json:"agent_id"`
	Money          int64            `json:"money"`
	Holdings       map[string]int64 `json:"holdings"`
	InventoryValue int64            `json:"inventory_value"`
	NetWorth       int64            `json:"net_worth"`
	Trades         int              `json:"trades"`
}

// agentListResponse is the JSON response for GET /agents.
type agentListResponse struct {
	Agents []agentResponse `json:"agents"`
}

// goodResponse is the JSON response for GET /goods/{good}.
type goodResponse struct {
	Good   string `json:"good"`
	Price  int64  `json:"price"`
	Trades int    `json:"trades"`
	Units  int64  `json:"units_traded"`
	Value  int64  `json:"value"`
}

// ListDays handles GET /days.
func (h *ReportHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	days, total, err := h.reportSvc.ListDays(page, limit)
	if err != nil {
		mapReportError(w, err)
		return
	}

	resp := dayListResponse{
		Days:  make([]dayResponse, len(days)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i, d := range days {
		resp.Days[i] = toDayResponse(d, false)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetDay handles GET /days/{day}.
func (h *ReportHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "day must be a valid integer")
		return
	}

	d, err := h.reportSvc.GetDay(day)
	if err != nil {
		mapReportError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toDayResponse(d, true))
}

// TopAgents handles GET /agents.
func (h *ReportHandler) TopAgents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	agents, err := h.reportSvc.TopAgents(limit)
	if err != nil {
		mapReportError(w, err)
		return
	}

	resp := agentListResponse{Agents: make([]agentResponse, len(agents))}
	for i, a := range agents {
		resp.Agents[i] = toAgentResponse(a)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetAgent handles GET /agents/{agent_id}.
func (h *ReportHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "agent_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "agent_id must be a valid integer")
		return
	}

	a, err := h.reportSvc.GetAgent(id)
	if err != nil {
		mapReportError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAgentResponse(a))
}

// GetGood handles GET /goods/{good}.
func (h *ReportHandler) GetGood(w http.ResponseWriter, r *http.Request) {
	g, err := h.reportSvc.GetGood(chi.URLParam(r, "good"))
	if err != nil {
		mapReportError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, goodResponse{
		Good:   g.Good.String(),
		Price:  g.Price,
		Trades: g.Trades,
		Units:  g.Units,
		Value:  g.Value,
	})
}

func toDayResponse(d *domain.DaySummary, withGoods bool) dayResponse {
	resp := dayResponse{
		Day:         d.Day,
		SellOrders:  d.SellOrders,
		BuyOrders:   d.BuyOrders,
		SellValue:   d.SellValue,
		BuyValue:    d.BuyValue,
		Trades:      d.Trades,
		UnitsTraded: d.UnitsTraded,
		TradedValue: d.TradedValue,
		Failed:      d.Failed,
		TotalMoney:  d.TotalMoney,
		StartedAt:   d.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		DurationMS:  d.Duration.Milliseconds(),
	}
	if withGoods {
		resp.Goods = make([]goodStatsResponse, len(d.Goods))
		for i, gs := range d.Goods {
			resp.Goods[i] = goodStatsResponse{
				Good:        gs.Good.String(),
				SellOrders:  gs.SellOrders,
				BuyOrders:   gs.BuyOrders,
				Trades:      gs.Trades,
				UnitsTraded: gs.UnitsTraded,
				Value:       gs.Value,
				Failed:      gs.Failed,
			}
		}
	}
	return resp
}

func toAgentResponse(a *service.AgentReport) agentResponse {
	holdings := make(map[string]int64, len(a.Holdings))
	for g, qty := range a.Holdings {
		holdings[g.String()] = qty
	}
	return agentResponse{
		AgentID:        a.ID,
		Money:          a.Money,
		Holdings:       holdings,
		InventoryValue: a.InventoryValue,
		NetWorth:       a.NetWorth,
		Trades:         a.Trades,
	}
}

// mapReportError maps domain errors to HTTP responses for report endpoints.
func mapReportError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrDayNotFound):
		WriteError(w, http.StatusNotFound, "day_not_found", "Day not found")
	case errors.Is(err, domain.ErrAgentNotFound):
		WriteError(w, http.StatusNotFound, "agent_not_found", "Agent not found")
	case errors.Is(err, domain.ErrUnknownGood):
		WriteError(w, http.StatusNotFound, "good_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
