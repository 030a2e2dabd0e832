package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"zen-storefront/internal/middleware"
	"zen-storefront/internal/report"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	exportDateLayout    = "2006-01-02"
	defaultExportWindow = 30 * 24 * time.Hour
)

// AdminHandler serves the back-office overview, exports and live feed
type AdminHandler struct {
	dashboard service.DashboardService
	feed      http.Handler
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminHandler creates a new AdminHandler. feed serves the websocket
// order stream.
func NewAdminHandler(dashboard service.DashboardService, feed http.Handler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, feed: feed, logger: logger, now: time.Now}
}

// RegisterRoutes registers all back-office routes
func (h *AdminHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.Auth, g.Admin)
		r.Get("/admin/dashboard", h.Dashboard)
		r.Get("/admin/orders/export", h.ExportOrders)
		r.Method(http.MethodGet, "/admin/orders/feed", h.feed)
	})
}

// Dashboard returns order counts, revenue and low-stock totals
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// ExportOrders streams an XLSX workbook of orders placed between ?from= and
// ?to= (inclusive dates, YYYY-MM-DD). The default is the last 30 days.
func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	to := today.Add(24 * time.Hour)
	from := to.Add(-defaultExportWindow)

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(exportDateLayout, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "from must be a YYYY-MM-DD date")
			return
		}
		from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(exportDateLayout, raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "to must be a YYYY-MM-DD date")
			return
		}
		to = parsed.Add(24 * time.Hour)
	}

	var buf bytes.Buffer
	count, err := h.dashboard.ExportOrders(r.Context(), &buf, from, to)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("orders-%s-%s.xlsx", from.Format(exportDateLayout), to.Add(-24*time.Hour).Format(exportDateLayout))
	h.logger.Info("Orders exported", zap.Int("count", count), zap.String("file", filename))

	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write export", zap.Error(err))
	}
}
