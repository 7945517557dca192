package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRoboflow = "roboflow"
	BackendLocal    = "local"

	ActuationMemory = "memory"
	ActuationSQL    = "sql"
)

type Config struct {
	HTTPAddr        string
	TelegramToken   string
	ClassifyTimeout time.Duration

	AIBackend string
	Roboflow  RoboflowConfig
	Local     LocalConfig

	DB DBConfig

	ActuationStore string

	LogLevel  string
	LogFormat string
}

// RoboflowConfig доступ к облачным моделям
type RoboflowConfig struct {
	APIURL      string
	APIKey      string
	Workspace   string
	WorkflowID  string
	ModelAPIURL string
	ModelID     string
	Timeout     time.Duration
}

// LocalConfig локальная ONNX-модель
type LocalConfig struct {
	WeightsPath string
	WeightsGlob string
	ClassNames  []string
	InputSize   int
}

type DBConfig struct {
	Driver  string
	URL     string
	Migrate bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		ClassifyTimeout: getEnvAsDuration("CLASSIFY_TIMEOUT", 45*time.Second),
		AIBackend:       strings.ToLower(getEnv("AI_BACKEND", BackendRoboflow)),
		Roboflow: RoboflowConfig{
			APIURL:      getEnv("ROBOFLOW_API_URL", "https://serverless.roboflow.com"),
			APIKey:      os.Getenv("ROBOFLOW_API_KEY"),
			Workspace:   os.Getenv("ROBOFLOW_WORKSPACE"),
			WorkflowID:  os.Getenv("ROBOFLOW_WORKFLOW_ID"),
			ModelAPIURL: getEnv("ROBOFLOW_MODEL_API_URL", "https://classify.roboflow.com"),
			ModelID:     os.Getenv("ROBOFLOW_MODEL_ID"),
			Timeout:     getEnvAsDuration("ROBOFLOW_TIMEOUT", 30*time.Second),
		},
		Local: LocalConfig{
			WeightsPath: os.Getenv("LOCAL_WEIGHTS_PATH"),
			WeightsGlob: getEnv("LOCAL_WEIGHTS_GLOB", "runs/classify/*/weights/best.onnx"),
			ClassNames:  getEnvAsList("LOCAL_CLASS_NAMES"),
			InputSize:   getEnvAsInt("LOCAL_INPUT_SIZE", 224),
		},
		DB: DBConfig{
			Driver:  strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			URL:     getEnv("DB_URL", "file:ecotachos.db"),
			Migrate: getEnvAsBool("DB_MIGRATE", true),
		},
		ActuationStore: strings.ToLower(getEnv("ACTUATION_STORE", ActuationMemory)),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	switch c.AIBackend {
	case BackendRoboflow:
		if c.Roboflow.APIKey == "" {
			errs = append(errs, errors.New("ROBOFLOW_API_KEY is required for AI_BACKEND=roboflow"))
		}
		if c.Roboflow.WorkflowID == "" && c.Roboflow.ModelID == "" {
			errs = append(errs, errors.New("ROBOFLOW_WORKFLOW_ID or ROBOFLOW_MODEL_ID is required"))
		}
		if c.Roboflow.WorkflowID != "" && c.Roboflow.Workspace == "" {
			errs = append(errs, errors.New("ROBOFLOW_WORKSPACE is required with ROBOFLOW_WORKFLOW_ID"))
		}
	case BackendLocal:
		if c.Local.InputSize <= 0 {
			errs = append(errs, errors.New("LOCAL_INPUT_SIZE must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI_BACKEND %q", c.AIBackend))
	}

	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver))
	}

	switch c.ActuationStore {
	case ActuationMemory, ActuationSQL:
	default:
		errs = append(errs, fmt.Errorf("unknown ACTUATION_STORE %q", c.ActuationStore))
	}

	if c.ClassifyTimeout <= 0 {
		errs = append(errs, errors.New("CLASSIFY_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList разбирает список через запятую, пустые элементы отбрасываются
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
