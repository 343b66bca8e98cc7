package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// Dataset & model artifacts
	DatasetPath        string
	LabelColumn        string
	ModelArtifactDir   string
	ModelName          string
	ModelType          string
	TrainTestSplit     float64
	TrainingSeed       int64
	TrainingMaxWorkers int

	// OCR
	OCRProvider       string // "tesseract" or "ocrspace"
	OCRTimeout        time.Duration
	OCRCacheTTL       time.Duration
	TesseractPath     string
	PdfToPpmPath      string
	OCRSpaceEndpoint  string
	OCRSpaceAPIKey    string
	OCRSpaceLanguage  string
	OCRSpaceEngine    int
	OCRRetryAttempts  int
	OCRRetryBaseDelay time.Duration

	// Extraction rules & terminology
	ExtractionRulesPath string
	TerminologyPath     string

	// Auth
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	// OIDC (optional SSO)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 8*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "kidneysync"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "kidneysync123"),
		PostgresDB:       getEnv("POSTGRES_DB", "kidneysync"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "kidneysync-platform"),

		DatasetPath:        getEnv("DATASET_PATH", "data/ckd_dataset.csv"),
		LabelColumn:        getEnv("DATASET_LABEL_COLUMN", "class"),
		ModelArtifactDir:   getEnv("MODEL_ARTIFACT_DIR", "artifacts"),
		ModelName:          getEnv("MODEL_NAME", "ckd-risk"),
		ModelType:          getEnv("MODEL_TYPE", "forest"),
		TrainTestSplit:     getFloatEnv("TRAIN_TEST_SPLIT", 0.2),
		TrainingSeed:       int64(getIntEnv("TRAINING_SEED", 42)),
		TrainingMaxWorkers: getIntEnv("TRAINING_MAX_WORKERS", 1),

		OCRProvider:       getEnv("OCR_PROVIDER", "tesseract"),
		OCRTimeout:        getDuration("OCR_TIMEOUT", 60*time.Second),
		OCRCacheTTL:       getDuration("OCR_CACHE_TTL", 24*time.Hour),
		TesseractPath:     getEnv("TESSERACT_PATH", "tesseract"),
		PdfToPpmPath:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
		OCRSpaceEndpoint:  getEnv("OCRSPACE_ENDPOINT", "https://api.ocr.space/parse/image"),
		OCRSpaceAPIKey:    getEnv("OCRSPACE_API_KEY", ""),
		OCRSpaceLanguage:  getEnv("OCRSPACE_LANGUAGE", "eng"),
		OCRSpaceEngine:    getIntEnv("OCRSPACE_ENGINE", 2),
		OCRRetryAttempts:  getIntEnv("OCR_RETRY_ATTEMPTS", 3),
		OCRRetryBaseDelay: getDuration("OCR_RETRY_BASE_DELAY", 250*time.Millisecond),

		ExtractionRulesPath: getEnv("EXTRACTION_RULES_PATH", ""),
		TerminologyPath:     getEnv("TERMINOLOGY_PATH", ""),

		JWTSecret:   getEnv("JWT_SECRET", "change-me-please-32-bytes-minimum"),
		JWTIssuer:   getEnv("JWT_ISSUER", "kidneysync"),
		JWTAudience: getEnv("JWT_AUDIENCE", "kidneysync-api"),
		JWTTTL:      getDuration("JWT_TTL", time.Hour),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
