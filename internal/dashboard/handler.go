package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/seafood-erp/seafood-erp/internal/platform/httpx"
	"github.com/seafood-erp/seafood-erp/internal/view"
)

const requestTimeout = 5 * time.Second

// Reader is the read model contract used by the handler.
type Reader interface {
	Summary(ctx context.Context) (Summary, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	Report(ctx context.Context, kind Kind, days int) (Report, error)
}

// PDFRenderer converts an HTML document to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the dashboard and reports as JSON, HTML, CSV and PDF.
type Handler struct {
	logger    *slog.Logger
	service   Reader
	templates *view.Engine
	pdf       PDFRenderer
	exports   http.Handler
	bufPool   sync.Pool
}

// NewHandler constructs the dashboard handler. exportsPerMinute caps CSV and PDF downloads per
// client IP; zero disables the limit.
func NewHandler(logger *slog.Logger, service Reader, templates *view.Engine, pdf PDFRenderer, exportsPerMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, templates: templates, pdf: pdf}
	h.bufPool.New = func() any { return new(bytes.Buffer) }
	var exports http.Handler = http.HandlerFunc(h.export)
	if exportsPerMinute > 0 {
		exports = httprate.Limit(exportsPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export limit reached, retry in a minute")
			}),
		)(exports)
	}
	h.exports = exports
	return h
}

// MountRoutes registers dashboard and report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/api/dashboard", h.summary)
	r.Get("/api/dashboard/stock-levels", h.stockLevels)
	r.Get("/api/reports/{kind}", h.reportJSON)
	r.Get("/dashboard", h.dashboardPage)
	r.Get("/reports/{kind}", h.reportPage)
}

type dashboardView struct {
	Summary Summary
	Levels  []StockLevel
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.Summary(ctx)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	levels, err := h.service.StockLevels(ctx)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": levels})
}

func (h *Handler) reportJSON(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r, Kind(chi.URLParam(r, "kind")))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) dashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	summary, err := h.service.Summary(ctx)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	levels, err := h.service.StockLevels(ctx)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	data := view.TemplateData{Title: "Dashboard", CurrentPath: r.URL.Path, Data: dashboardView{Summary: summary, Levels: levels}}
	h.render(w, r, "dashboard.html", data)
}

// reportPage serves /reports/{kind} as HTML and /reports/{kind}.csv|.pdf as downloads.
func (h *Handler) reportPage(w http.ResponseWriter, r *http.Request) {
	_, ext, _ := strings.Cut(chi.URLParam(r, "kind"), ".")
	if ext != "" {
		h.exports.ServeHTTP(w, r)
		return
	}
	kind := Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		http.NotFound(w, r)
		return
	}
	report, ok := h.loadReport(w, r, kind)
	if !ok {
		return
	}
	h.render(w, r, "report.html", view.TemplateData{Title: reportTitle(kind), CurrentPath: r.URL.Path, Data: report})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	name, ext, _ := strings.Cut(chi.URLParam(r, "kind"), ".")
	kind := Kind(name)
	if !kind.Valid() || (ext != "csv" && ext != "pdf") {
		http.NotFound(w, r)
		return
	}
	report, ok := h.loadReport(w, r, kind)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	filename := fmt.Sprintf("%s-report-%s.%s", kind, report.GeneratedAt.Format("20060102"), ext)
	switch ext {
	case "csv":
		if err := WriteReportCSV(buf, report); err != nil {
			httpx.Fail(h.logger, w, r, fmt.Errorf("write %s csv: %w", kind, err))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case "pdf":
		if h.pdf == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "PDF export unavailable", "no PDF renderer is configured")
			return
		}
		data := view.TemplateData{Title: reportTitle(kind), Data: report}
		if err := h.templates.Execute(buf, "report_print.html", data); err != nil {
			httpx.Fail(h.logger, w, r, fmt.Errorf("render %s report: %w", kind, err))
			return
		}
		pdf, err := h.pdf.RenderHTML(r.Context(), buf.String())
		if err != nil {
			h.logger.Error("render report pdf", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "PDF rendering failed", "")
			return
		}
		buf.Reset()
		buf.Write(pdf)
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream report", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request, kind Kind) (Report, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.service.Report(ctx, kind, httpx.QueryInt(r, "days", 0))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return Report{}, false
	}
	return report, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data view.TemplateData) {
	if h.templates == nil {
		httpx.Fail(h.logger, w, r, errors.New("dashboard: template engine not configured"))
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.bufPool.Put(buf)
	if err := h.templates.Execute(buf, name, data); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func reportTitle(kind Kind) string {
	switch kind {
	case KindSales:
		return "Sales report"
	case KindInventory:
		return "Inventory report"
	case KindCustomers:
		return "Customer report"
	case KindSuppliers:
		return "Supplier report"
	}
	return "Report"
}
