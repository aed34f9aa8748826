package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/export"
	"github.com/joseph-ayodele/gst-invoices/internal/invoices"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HTTPServer exposes the invoice service as JSON over HTTP.
type HTTPServer struct {
	svc      InvoiceService
	exporter *export.Service
	health   Pinger
	logger   *slog.Logger
}

// NewHTTPHandler builds the chi router. health may be nil.
func NewHTTPHandler(svc InvoiceService, exporter *export.Service, health Pinger, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	s := &HTTPServer{svc: svc, exporter: exporter, health: health, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.extract)
		r.Post("/invoices", s.submit)
		r.Get("/invoices", s.list)
		r.Get("/invoices/{id}", s.get)
		r.Patch("/invoices/{id}", s.setSupplyType)
		r.Patch("/invoices/{id}/line-items/{index}", s.correctLineItem)
		r.Get("/invoices/{id}/export.xlsx", s.exportXLSX)
	})
	return r
}

func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		ctx, id := common.EnsureRequestID(ctx)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"req_id", common.RequestIDFromContext(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) extract(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.svc.ProcessNow(r.Context(), doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) submit(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.svc.Upload(r.Context(), doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/invoices/"+rec.ID.String())
	writeJSON(w, http.StatusAccepted, rec)
}

func (s *HTTPServer) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, common.InvalidInputf("limit must be an integer"))
			return
		}
		limit = n
	}
	recs, err := s.svc.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": recs})
}

func (s *HTTPServer) get(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) setSupplyType(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body struct {
		IsInterState *bool `json:"is_inter_state"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.IsInterState == nil {
		s.fail(w, r, common.InvalidInputf("is_inter_state is required"))
		return
	}
	rec, err := s.svc.SetInterState(r.Context(), id, *body.IsInterState)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) correctLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.fail(w, r, common.InvalidInputf("line item index must be an integer"))
		return
	}
	var edit pipeline.LineItemEdit
	if err := decodeJSON(r, &edit); err != nil {
		s.fail(w, r, err)
		return
	}
	if edit.Empty() {
		s.fail(w, r, common.InvalidInputf("edit has no fields"))
		return
	}
	rec, err := s.svc.CorrectLineItem(r.Context(), id, index, edit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) exportXLSX(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.exporter.WorkbookXLSX(r.Context(), []export.Document{export.FromRecord(rec)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.xlsx"`, rec.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *HTTPServer) record(r *http.Request) (*entity.InvoiceRecord, error) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return s.svc.Get(r.Context(), id)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "path", r.URL.Path, "req_id", common.RequestIDFromContext(r.Context()), "stage", common.StageOf(err), "error", err)
	}
	body := map[string]any{"message": err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
	}
	if stage := common.StageOf(err); stage != "" {
		body["stage"] = stage
	}
	writeJSON(w, code, map[string]any{"error": body})
}

// readDocument accepts either a multipart form with a "file" part or a raw
// body whose Content-Type names the document type. A filename hint may be
// passed as ?filename=.
func readDocument(w http.ResponseWriter, r *http.Request) (entity.RawDocument, error) {
	r.Body = http.MaxBytesReader(w, r.Body, invoices.MaxUploadBytes+1<<20)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return entity.RawDocument{}, common.InvalidInputf("parse multipart form: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return entity.RawDocument{}, common.InvalidInputf("multipart field \"file\" is required")
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return entity.RawDocument{}, common.InvalidInputf("read upload: %v", err)
		}
		return entity.RawDocument{Content: b, ContentType: hdr.Header.Get("Content-Type"), Filename: hdr.Filename}, nil
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return entity.RawDocument{}, common.InvalidInputf("read body: %v", err)
	}
	ct := r.Header.Get("Content-Type")
	if mediaType == "application/octet-stream" {
		ct = ""
	}
	return entity.RawDocument{Content: b, ContentType: ct, Filename: r.URL.Query().Get("filename")}, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.InvalidInputf("decode JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
