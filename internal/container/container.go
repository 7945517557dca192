package container

import (
	"fmt"
	"log/slog"

	"ecotachos/config"
	app "ecotachos/internal/application"
	"ecotachos/internal/domain/port"
	"ecotachos/internal/infrastructure/roboflow"
	"ecotachos/internal/infrastructure/vision"
)

type Container struct {
	UserService           *app.UserService
	ClassificationService *app.ClassificationService
	ActuationService      *app.ActuationService
	DetectionService      *app.DetectionService
	BinService            *app.BinService

	// BackendFamily значение AI_BACKEND, показывается в /api/ai/info/
	BackendFamily string
}

// Deps внешние зависимости, которые собирает main.
type Deps struct {
	Users      port.UserRepository
	Codec      port.ImageCodec
	Backends   []port.InferenceBackend
	Actuations port.ActuationStore
	Detections port.DetectionRepository
	Bins       port.BinRepository
	Exporter   port.DetectionExporter
	Family     string
	Logger     *slog.Logger
}

func New(d Deps) *Container {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Container{
		UserService:           app.NewUserService(d.Users),
		ClassificationService: app.NewClassificationService(d.Codec, d.Backends, d.Actuations, d.Detections, d.Logger),
		ActuationService:      app.NewActuationService(d.Actuations, d.Logger),
		DetectionService:      app.NewDetectionService(d.Detections, d.Exporter),
		BinService:            app.NewBinService(d.Bins),
		BackendFamily:         d.Family,
	}
}

// BuildBackends собирает цепочку бэкендов по AI_BACKEND.
// Для roboflow: [workflow, model], если задан workflow, иначе [model].
func BuildBackends(cfg *config.Config, logger *slog.Logger) ([]port.InferenceBackend, error) {
	switch cfg.AIBackend {
	case config.BackendLocal:
		return []port.InferenceBackend{
			vision.NewLocalBackend(vision.LocalConfig{
				WeightsPath: cfg.Local.WeightsPath,
				WeightsGlob: cfg.Local.WeightsGlob,
				ClassNames:  cfg.Local.ClassNames,
				InputSize:   cfg.Local.InputSize,
			}, logger),
		}, nil

	case config.BackendRoboflow:
		rc := roboflow.Config{
			APIURL:      cfg.Roboflow.APIURL,
			APIKey:      cfg.Roboflow.APIKey,
			Workspace:   cfg.Roboflow.Workspace,
			WorkflowID:  cfg.Roboflow.WorkflowID,
			ModelAPIURL: cfg.Roboflow.ModelAPIURL,
			ModelID:     cfg.Roboflow.ModelID,
			Timeout:     cfg.Roboflow.Timeout,
		}

		var backends []port.InferenceBackend
		if rc.WorkflowID != "" {
			backends = append(backends, roboflow.NewWorkflowBackend(rc, logger))
		}
		if rc.ModelID != "" {
			backends = append(backends, roboflow.NewModelBackend(rc, logger))
		}
		if len(backends) == 0 {
			return nil, fmt.Errorf("roboflow backend needs a workflow id or a model id")
		}
		return backends, nil

	default:
		return nil, fmt.Errorf("unknown AI_BACKEND %q", cfg.AIBackend)
	}
}
