package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "ecotachos/internal/application"
	"ecotachos/internal/container"
	"ecotachos/internal/domain/entity"
)

const (
	maxUploadBytes  = 32 << 20
	imageField      = "imagen"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Server HTTP API: классификация, опрос ESP32, детекции и тачо.
type Server struct {
	c               *container.Container
	classifyTimeout time.Duration
	logger          *slog.Logger
}

func NewServer(c *container.Container, classifyTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if classifyTimeout <= 0 {
		classifyTimeout = 45 * time.Second
	}
	return &Server{c: c, classifyTimeout: classifyTimeout, logger: logger}
}

// Handler собирает маршруты с логированием запросов.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /api/ai/detect/{$}", s.detect)
	mux.HandleFunc("POST /api/ai/analizar/{$}", s.detect)
	mux.HandleFunc("GET /api/ai/health/{$}", s.aiHealth)
	mux.HandleFunc("GET /api/ai/status/{$}", s.aiHealth)
	mux.HandleFunc("GET /api/ai/info/{$}", s.aiInfo)

	mux.HandleFunc("POST /api/iot/esp32/detect/{$}", s.esp32)

	mux.HandleFunc("GET /api/detecciones/{$}", s.listDetections)
	mux.HandleFunc("GET /api/detecciones/export.xlsx", s.exportDetections)
	mux.HandleFunc("GET /api/detecciones/{id}", s.getDetection)
	mux.HandleFunc("DELETE /api/detecciones/{id}", s.deleteDetection)

	mux.HandleFunc("GET /api/tachos/{$}", s.listBins)
	mux.HandleFunc("POST /api/tachos/{$}", s.createBin)
	mux.HandleFunc("GET /api/tachos/{codigo}", s.getBin)

	return LoggingMiddleware(s.logger, mux)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type detectRequest struct {
	Image    string     `json:"imagen"`
	BinID    flexString `json:"tacho_id"`
	BinCode  flexString `json:"tacho_codigo"`
	Filename string     `json:"filename"`
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	req, err := parseDetectRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.classifyTimeout)
	defer cancel()

	res, err := s.c.ClassificationService.Classify(ctx, req)
	if err != nil {
		s.logger.Warn("http.detect_failed", "error", err)
	}
	writeJSON(w, statusFor(err), res)
}

// parseDetectRequest принимает multipart-файл (поле imagen в приоритете, иначе любой файл),
// JSON или форму с data URI.
func parseDetectRequest(r *http.Request) (app.ClassifyRequest, error) {
	var req app.ClassifyRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, fmt.Errorf("invalid multipart form: %w", err)
		}
		if fh := pickFile(r.MultipartForm); fh != nil {
			data, err := readFile(fh)
			if err != nil {
				return req, err
			}
			req.Image.Data = data
			req.Image.Filename = fh.Filename
		} else {
			req.Image.DataURI = r.FormValue(imageField)
		}
		req.BinCode = firstNonEmpty(r.FormValue("tacho_codigo"), r.FormValue("tacho_id"))

	case "application/json":
		var body detectRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
			return req, fmt.Errorf("invalid json: %w", err)
		}
		req.Image.DataURI = body.Image
		req.Image.Filename = body.Filename
		req.BinCode = firstNonEmpty(body.BinCode.String(), body.BinID.String())

	default:
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("invalid form: %w", err)
		}
		req.Image.DataURI = r.PostFormValue(imageField)
		req.BinCode = firstNonEmpty(r.PostFormValue("tacho_codigo"), r.PostFormValue("tacho_id"))
	}

	req.BinCode = strings.TrimSpace(req.BinCode)
	return req, nil
}

func pickFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File[imageField]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) aiHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	statuses := s.c.ClassificationService.Health(ctx)
	available := false
	for _, st := range statuses {
		available = available || st.Available
	}

	message := "Servicio de IA disponible"
	if !available {
		message = "Servicio de IA no disponible"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "operational",
		"service":   "EcoTachosTec IA",
		"backend":   s.c.BackendFamily,
		"available": available,
		"backends":  statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   message,
	})
}

func (s *Server) aiInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"model": map[string]any{
			"type":       s.c.BackendFamily,
			"backends":   s.c.ClassificationService.Backends(),
			"categories": entity.CanonicalCategories,
			"available":  true,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type esp32Request struct {
	BinID          flexString `json:"tacho_id"`
	Classification string     `json:"clasificacion"`
}

// esp32 с clasificacion сохраняет сигнал, без неё отдаёт ожидающий сигнал и сбрасывает его.
func (s *Server) esp32(w http.ResponseWriter, r *http.Request) {
	var req esp32Request
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
	} else {
		req.BinID = flexString(strings.TrimSpace(r.FormValue("tacho_id")))
		req.Classification = r.FormValue("clasificacion")
	}

	if req.BinID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tacho_id es requerido"})
		return
	}

	var (
		signal entity.ActuationSignal
		err    error
	)
	if strings.TrimSpace(req.Classification) != "" {
		signal, err = s.c.ActuationService.Submit(r.Context(), req.BinID.String(), req.Classification)
	} else {
		signal, err = s.c.ActuationService.Poll(r.Context(), req.BinID.String())
	}
	if err != nil {
		s.logger.Error("http.esp32_failed", "tacho", req.BinID, "error", err)
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "parpadeos": signal})
}

func (s *Server) detectionFilter(r *http.Request) entity.DetectionFilter {
	q := r.URL.Query()
	filter := entity.DetectionFilter{BinCode: q.Get("tacho")}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	return filter
}

func (s *Server) listDetections(w http.ResponseWriter, r *http.Request) {
	detections, err := s.c.DetectionService.List(r.Context(), s.detectionFilter(r))
	if err != nil {
		s.logger.Error("http.list_detections_failed", "error", err)
		writeError(w, statusFor(err), "No se pudieron obtener las detecciones")
		return
	}
	writeJSON(w, http.StatusOK, detections)
}

func (s *Server) exportDetections(w http.ResponseWriter, r *http.Request) {
	data, err := s.c.DetectionService.Export(r.Context(), s.detectionFilter(r))
	if err != nil {
		s.logger.Error("http.export_failed", "error", err)
		writeError(w, statusFor(err), "No se pudo exportar")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="detecciones.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", entity.ErrInvalidInput, r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) getDetection(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.c.DetectionService.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err, "Detección no encontrada"))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDetection(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.c.DetectionService.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), errorMessage(err, "Detección no encontrada"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBins(w http.ResponseWriter, r *http.Request) {
	bins, err := s.c.BinService.List(r.Context())
	if err != nil {
		s.logger.Error("http.list_bins_failed", "error", err)
		writeError(w, statusFor(err), "No se pudieron obtener los tachos")
		return
	}
	writeJSON(w, http.StatusOK, bins)
}

func (s *Server) getBin(w http.ResponseWriter, r *http.Request) {
	bin, err := s.c.BinService.Get(r.Context(), r.PathValue("codigo"))
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err, "Tacho no encontrado"))
		return
	}
	writeJSON(w, http.StatusOK, bin)
}

func (s *Server) createBin(w http.ResponseWriter, r *http.Request) {
	var bin entity.Bin
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&bin); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	if err := s.c.BinService.Save(r.Context(), &bin); err != nil {
		s.logger.Warn("http.create_bin_failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, bin)
}

// errorMessage скрывает внутренние ошибки, для 404 отдаёт понятный текст.
func errorMessage(err error, notFound string) string {
	if errors.Is(err, entity.ErrNotFound) {
		return notFound
	}
	return "Error interno"
}
