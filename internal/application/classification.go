package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// ClassifyRequest запрос на классификацию
type ClassifyRequest struct {
	Image   entity.ImageInput
	BinCode string // пустой код: без сигнала тачо и без записи детекции
}

// BackendStatus доступность одного бэкенда
type BackendStatus struct {
	entity.BackendInfo
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// ClassificationService проводит изображение через весь конвейер:
// декодирование, инференс с одним запасным бэкендом, нормализация,
// сигнал для тачо и запись детекции.
type ClassificationService struct {
	codec      port.ImageCodec
	backends   []port.InferenceBackend
	actuations port.ActuationStore
	recorder   port.DetectionRecorder
	logger     *slog.Logger
}

// NewClassificationService создаёт сервис. Бэкенды пробуются по порядку, каждый не более одного раза.
// actuations и recorder могут быть nil.
func NewClassificationService(
	codec port.ImageCodec,
	backends []port.InferenceBackend,
	actuations port.ActuationStore,
	recorder port.DetectionRecorder,
	logger *slog.Logger,
) *ClassificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationService{
		codec:      codec,
		backends:   backends,
		actuations: actuations,
		recorder:   recorder,
		logger:     logger,
	}
}

// Classify всегда возвращает результат. Ошибка не nil только при аварийном завершении
// (декодирование, недоступность бэкендов, конфигурация локальной модели).
func (s *ClassificationService) Classify(ctx context.Context, req ClassifyRequest) (res *entity.ClassificationResult, err error) {
	reqID := uuid.NewString()
	log := s.logger.With("req_id", reqID, "tacho", req.BinCode)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("classify.panic", "panic", r)
			err = fmt.Errorf("classification panic: %v", r)
			res = entity.NewErrorResult("", "Error interno procesando la imagen")
		}
	}()

	if req.Image.Empty() {
		err = fmt.Errorf("%w: no image provided", entity.ErrImageDecode)
		return entity.NewErrorResult("", "No se envió imagen. Enviar archivo en 'imagen' o base64"), err
	}

	img, err := s.codec.Normalize(ctx, req.Image)
	if err != nil {
		log.Warn("classify.decode_error", "error", err)
		return entity.NewErrorResult("", fmt.Sprintf("Error procesando imagen: %v", err)), err
	}
	log.Debug("classify.decoded", "width", img.Width, "height", img.Height, "bytes", len(img.Data))

	raw, backend, err := s.infer(ctx, log, img)
	if err != nil {
		log.Error("classify.backend_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.NewErrorResult(backend, backendErrorMessage(err)), err
	}

	preds, err := NormalizeResponse(raw)
	if err != nil {
		log.Error("classify.normalize_error", "backend", backend, "error", err)
		return entity.NewErrorResult(backend, fmt.Sprintf("Error procesando respuesta: %v", err)), err
	}
	if len(preds) == 0 {
		log.Warn("classify.no_detection", "backend", backend)
		return entity.NewNoDetectionResult(backend), nil
	}
	if preds[0].Label == "" {
		log.Warn("classify.unknown_label", "backend", backend)
		return entity.NewUnknownCategoryResult(backend), nil
	}

	top := make([]entity.Prediction, 0, min(len(preds), entity.MaxTopPredictions))
	for _, p := range preds[:min(len(preds), entity.MaxTopPredictions)] {
		top = append(top, entity.Prediction{Category: entity.MapCategory(p.Label), Confidence: p.Confidence})
	}
	primary := top[0]
	if primary.Category == entity.CategoryNone {
		log.Warn("classify.no_confident_class", "backend", backend, "confianza", primary.Confidence)
		return entity.NewNoDetectionResult(backend), nil
	}
	if !primary.Category.IsCanonical() {
		log.Warn("classify.non_canonical_label", "label", preds[0].Label, "default", entity.CategoryInorganic)
	}
	category := primary.Category.OrDefault()
	// Сигнал от исходной категории: неизвестная метка не открывает отсек inorganico.
	signal := entity.BlinkCount(primary.Category)

	if req.BinCode != "" && s.actuations != nil {
		if err := s.actuations.Put(ctx, req.BinCode, signal); err != nil {
			log.Error("classify.actuation_store_error", "error", err)
		}
	}

	detectionID := s.record(ctx, log, req.BinCode, category, primary.Confidence, backend)

	log.Info("classify.done",
		"backend", backend,
		"categoria", category,
		"confianza", primary.Confidence,
		"parpadeos", signal,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.NewSuccessResult(primary, top, backend, detectionID), nil
}

// infer пробует бэкенды по очереди. Запасной бэкенд вызывается ровно один раз,
// повторов одного и того же вызова нет.
func (s *ClassificationService) infer(ctx context.Context, log *slog.Logger, img *entity.NormalizedImage) (*entity.RawResponse, entity.BackendKind, error) {
	if len(s.backends) == 0 {
		return nil, "", fmt.Errorf("%w: no inference backend configured", entity.ErrBackendUnavailable)
	}

	var (
		lastErr  error
		lastKind entity.BackendKind
	)
	for i, b := range s.backends {
		lastKind = b.Kind()
		raw, err := b.Classify(ctx, img)
		if err == nil {
			return raw, lastKind, nil
		}
		lastErr = err
		if i < len(s.backends)-1 {
			log.Warn("classify.backend_fallback", "backend", lastKind, "next", s.backends[i+1].Kind(), "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if errors.Is(lastErr, entity.ErrWeightsNotFound) || errors.Is(lastErr, entity.ErrModelLoad) || errors.Is(lastErr, entity.ErrBackendUnavailable) {
		return nil, lastKind, lastErr
	}
	return nil, lastKind, fmt.Errorf("%w: %w", entity.ErrBackendUnavailable, lastErr)
}

// record сохраняет детекцию. Ошибки хранилища не влияют на ответ.
func (s *ClassificationService) record(ctx context.Context, log *slog.Logger, binCode string, category entity.Category, confidence float64, backend entity.BackendKind) int64 {
	if s.recorder == nil || binCode == "" {
		return 0
	}

	d := &entity.Detection{
		BinCode:     binCode,
		Category:    category,
		Confidence:  confidence,
		Backend:     backend,
		Description: fmt.Sprintf("Clasificación automática (%s)", backend),
		Processed:   true,
		Active:      true,
	}
	if err := s.recorder.Record(ctx, d); err != nil {
		log.Error("classify.record_error", "error", fmt.Errorf("%w: %w", entity.ErrPersistence, err))
		return 0
	}
	return d.ID
}

// Health опрашивает все сконфигурированные бэкенды.
func (s *ClassificationService) Health(ctx context.Context) []BackendStatus {
	statuses := make([]BackendStatus, 0, len(s.backends))
	for _, b := range s.backends {
		st := BackendStatus{BackendInfo: b.Info(), Available: true}
		if err := b.Probe(ctx); err != nil {
			st.Available = false
			st.Detail = err.Error()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// Backends возвращает описание цепочки бэкендов.
func (s *ClassificationService) Backends() []entity.BackendInfo {
	infos := make([]entity.BackendInfo, 0, len(s.backends))
	for _, b := range s.backends {
		infos = append(infos, b.Info())
	}
	return infos
}

func backendErrorMessage(err error) string {
	switch {
	case errors.Is(err, entity.ErrWeightsNotFound):
		return "No se encontraron los pesos del modelo local"
	case errors.Is(err, entity.ErrModelLoad):
		return "No se pudo cargar el modelo local"
	default:
		return "Error al conectar con el servicio de IA o no se obtuvieron resultados"
	}
}
