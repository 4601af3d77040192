package printing

import (
	"errors"
	"net/http"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

// DeviceLister reports the printer names the device transport can address.
type DeviceLister interface {
	Printers() []string
}

// StatusReporter tells which event delivery mode is active.
type StatusReporter interface {
	Mode() string
}

// HandlerDeps wires the diagnostics handler.
type HandlerDeps struct {
	Engine  *TriggerEngine
	Routes  *PrinterRoutes
	Ledger  *Ledger
	Devices DeviceLister
	Source  StatusReporter
}

// Handler exposes the diagnostics and manual-reprint HTTP surface.
type Handler struct {
	engine  *TriggerEngine
	routes  *PrinterRoutes
	ledger  *Ledger
	devices DeviceLister
	source  StatusReporter
	config  *aqm.Config
	logger  aqm.Logger
	tlm     *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		engine:  deps.Engine,
		routes:  deps.Routes,
		ledger:  deps.Ledger,
		devices: deps.Devices,
		source:  deps.Source,
		config:  config,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/printers", h.ListPrinters)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/{id}/print", h.PrintOrder)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

type StatusResponse struct {
	Mode           string `json:"mode"`
	PrintedOrders  int    `json:"printed_orders"`
	DefaultPrinter string `json:"default_printer"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Status")
	defer finish()

	mode := ModeUnknown
	if h.source != nil {
		mode = h.source.Mode()
	}
	aqm.RespondSuccess(w, StatusResponse{
		Mode:           mode,
		PrintedOrders:  h.ledger.Len(),
		DefaultPrinter: h.routes.Default(),
	})
}

// ModeUnknown is reported before the event source is wired.
const ModeUnknown = "unknown"

type PrinterInfo struct {
	Name       string   `json:"name"`
	Kitchens   []string `json:"kitchens"`
	Configured bool     `json:"configured"`
}

func (h *Handler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListPrinters")
	defer finish()

	configured := make(map[string]bool)
	if h.devices != nil {
		for _, name := range h.devices.Printers() {
			configured[name] = true
		}
	}

	var infos []PrinterInfo
	for printer, keys := range h.routes.Destinations() {
		infos = append(infos, PrinterInfo{
			Name:       printer,
			Kitchens:   labels(keys),
			Configured: configured[printer],
		})
	}
	aqm.RespondSuccess(w, infos)
}

type PrintResponse struct {
	OrderID string   `json:"order_id"`
	Success bool     `json:"success"`
	Printed []string `json:"printed"`
	Failed  []string `json:"failed,omitempty"`
}

// PrintOrder reprints an order on demand, bypassing the trigger filter.
func (h *Handler) PrintOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintOrder")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		aqm.RespondError(w, http.StatusBadRequest, "Missing order ID")
		return
	}

	out, err := h.engine.Reprint(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			aqm.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Errorf("cannot print order %s: %v", id, err)
		aqm.RespondError(w, http.StatusBadGateway, "Could not print order")
		return
	}

	aqm.RespondSuccess(w, PrintResponse{
		OrderID: id,
		Success: out.FullSuccess(),
		Printed: labels(out.Succeeded),
		Failed:  labels(out.Failed()),
	})
}
