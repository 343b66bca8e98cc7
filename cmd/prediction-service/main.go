package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kidneysync/platform/pkg/common/config"
	"github.com/kidneysync/platform/pkg/common/database"
	"github.com/kidneysync/platform/pkg/common/kafka"
	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/extract"
	"github.com/kidneysync/platform/pkg/gateway/middleware"
	"github.com/kidneysync/platform/pkg/observability/metrics"
	"github.com/kidneysync/platform/pkg/ocr"
	"github.com/kidneysync/platform/pkg/pipeline"
	"github.com/kidneysync/platform/pkg/schema"
	"github.com/kidneysync/platform/pkg/serving"
	"github.com/kidneysync/platform/pkg/serving/predictor"
	"github.com/kidneysync/platform/pkg/terminology"
	"github.com/kidneysync/platform/pkg/training"
)

type PredictionService struct {
	cfg       *config.Config
	schema    schema.Schema
	extractor *extract.Extractor
	engine    ocr.Engine
	predictor *predictor.Predictor
	repo      *serving.Repository
	producer  *kafka.Producer
	catalog   terminology.Catalog
}

func main() {
	logger.Init("prediction-service")
	metrics.Init()
	cfg := config.Load()
	ckd := schema.CKD()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := serving.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction log tables")
	}

	rules, err := extract.LoadRules(cfg.ExtractionRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to default extraction rules")
	}
	extractor, err := extract.NewExtractor(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid extraction rules")
	}

	catalog, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to default terminology catalog")
	}

	service := &PredictionService{
		cfg:       cfg,
		schema:    ckd,
		extractor: extractor,
		engine:    buildOCREngine(cfg),
		predictor: predictor.NewPredictor(cfg.ModelArtifactDir, ckd),
		repo:      repo,
		producer:  kafka.NewProducer("prediction-events"),
		catalog:   catalog,
	}
	defer service.producer.Close()

	// Fit once at startup when no artifact exists yet; later refits come
	// from the training service rewriting the artifact on disk.
	ensureModel(cfg, ckd, service.predictor)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")
	router.HandleFunc("/api/v1/predict", service.handlePredict).Methods("POST")
	router.HandleFunc("/api/v1/reports/extract", service.handleExtract).Methods("POST")
	router.HandleFunc("/api/v1/reports/predict", service.handleReportPredict).Methods("POST")
	router.HandleFunc("/api/v1/model", service.handleModelInfo).Methods("GET")
	router.HandleFunc("/api/v1/fields", service.handleFields).Methods("GET")
	router.HandleFunc("/api/v1/predictions", service.handleRecentPredictions).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8089"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8089",
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Prediction Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func buildOCREngine(cfg *config.Config) ocr.Engine {
	var engine ocr.Engine
	switch cfg.OCRProvider {
	case "ocrspace":
		engine = ocr.NewOCRSpace(ocr.OCRSpaceConfig{
			Endpoint:      cfg.OCRSpaceEndpoint,
			APIKey:        cfg.OCRSpaceAPIKey,
			Language:      cfg.OCRSpaceLanguage,
			Engine:        cfg.OCRSpaceEngine,
			Timeout:       cfg.OCRTimeout,
			RetryAttempts: cfg.OCRRetryAttempts,
			RetryDelay:    cfg.OCRRetryBaseDelay,
		})
	default:
		engine = ocr.NewTesseract(cfg.TesseractPath, cfg.PdfToPpmPath)
	}
	return ocr.NewCachedEngine(engine, database.GetRedis(), cfg.OCRCacheTTL)
}

func ensureModel(cfg *config.Config, ckd schema.Schema, p *predictor.Predictor) {
	if _, err := p.Load(cfg.ModelName); err == nil {
		return
	}

	logger.Log.Info("No model artifact found, training from dataset")
	trainer := training.Trainer{
		Schema:      ckd,
		DatasetPath: cfg.DatasetPath,
		LabelColumn: cfg.LabelColumn,
		ArtifactDir: cfg.ModelArtifactDir,
		ModelName:   cfg.ModelName,
		ModelType:   cfg.ModelType,
		TestSplit:   cfg.TrainTestSplit,
		Seed:        cfg.TrainingSeed,
	}
	if _, _, err := trainer.Run(context.Background(), ""); err != nil {
		logger.Log.WithError(err).Fatal("Initial model training failed")
	}
}

func (s *PredictionService) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Fields == nil {
		req.Fields = models.RawRecord{}
	}

	resp, status, errMsg := s.predict(r.Context(), req.Fields, req.RequestID)
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *PredictionService) predict(ctx context.Context, fields models.RawRecord, requestID string) (models.PredictionResponse, int, string) {
	start := time.Now()
	if requestID == "" {
		requestID = uuid.New().String()
	}

	clf, artifact, err := s.predictor.Classifier(s.cfg.ModelName)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load model")
		metrics.ObservePredictionFailure()
		return models.PredictionResponse{}, http.StatusInternalServerError, "Model unavailable"
	}

	pl, err := pipeline.New(s.schema, clf, artifact.Model.FeatureNames)
	if err != nil {
		logger.Log.WithError(err).Error("Model incompatible with schema")
		return models.PredictionResponse{}, http.StatusInternalServerError, "Model unavailable"
	}

	prediction, err := pl.Predict(fields)
	if err != nil {
		metrics.ObservePredictionFailure()
		if schema.IsValidationError(err) || schema.IsUnknownCategoryError(err) {
			return models.PredictionResponse{}, http.StatusBadRequest, err.Error()
		}
		logger.Log.WithError(err).Error("Prediction failed")
		return models.PredictionResponse{}, http.StatusInternalServerError, "Prediction failed"
	}
	metrics.ObservePrediction(prediction.Label == 1)

	latency := time.Since(start)
	resp := models.PredictionResponse{
		RequestID:    requestID,
		Label:        prediction.Label,
		Verdict:      prediction.Verdict,
		Score:        prediction.Score,
		ModelVersion: artifact.Model.SchemaVersion,
		Latency:      latency,
	}

	if s.repo != nil {
		if err := s.repo.RecordPrediction(ctx, requestID, s.cfg.ModelName, fields, prediction, latency); err != nil {
			logger.Log.WithError(err).Warn("Failed to record prediction")
		}
	}

	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, "prediction-completed", "prediction-service", map[string]interface{}{
			"request_id": requestID,
			"label":      prediction.Label,
			"verdict":    prediction.Verdict,
			"score":      prediction.Score,
		}); err != nil {
			logger.Log.WithError(err).Warn("Failed to publish prediction event")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"request_id": requestID,
		"verdict":    prediction.Verdict,
		"latency_ms": latency.Milliseconds(),
	}).Info("Prediction completed")

	return resp, http.StatusOK, ""
}

// extractFromUpload runs OCR and field extraction on an uploaded report.
// OCR failures degrade to an empty field set instead of an error.
func (s *PredictionService) extractFromUpload(r *http.Request) (models.ExtractionResponse, int, string) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return models.ExtractionResponse{}, http.StatusBadRequest, "Invalid multipart request"
	}

	file, header, err := r.FormFile("report")
	if err != nil {
		return models.ExtractionResponse{}, http.StatusBadRequest, "Missing report file"
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes))
	if err != nil {
		return models.ExtractionResponse{}, http.StatusBadRequest, "Unreadable report file"
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.OCRTimeout)
	defer cancel()

	text, err := s.engine.ExtractText(ctx, data, header.Filename)
	if err != nil {
		logger.Log.WithError(err).Warn("OCR extraction failed")
		metrics.ObserveExtraction(true)
		return models.ExtractionResponse{
			Fields:           models.RawRecord{},
			ExtractionFailed: true,
			FailureReason:    "extraction failed",
		}, http.StatusOK, ""
	}

	metrics.ObserveExtraction(false)
	return models.ExtractionResponse{
		Fields:  s.extractor.Extract(text),
		RawText: text,
	}, http.StatusOK, ""
}

func (s *PredictionService) handleExtract(w http.ResponseWriter, r *http.Request) {
	extraction, status, errMsg := s.extractFromUpload(r)
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(extraction)
}

func (s *PredictionService) handleReportPredict(w http.ResponseWriter, r *http.Request) {
	extraction, status, errMsg := s.extractFromUpload(r)
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	// Form values for known fields override extracted ones.
	fields := models.RawRecord{}
	for name, value := range extraction.Fields {
		fields[name] = value
	}
	for _, field := range s.schema.Fields {
		if value := r.FormValue(field.Name); value != "" {
			fields[field.Name] = value
		}
	}

	resp, status, errMsg := s.predict(r.Context(), fields, r.Header.Get("X-Request-ID"))
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.ReportPredictionResponse{
		Extraction: extraction,
		Prediction: resp,
	})
}

func (s *PredictionService) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.predictor.Load(s.cfg.ModelName)
	if err != nil {
		http.Error(w, "Model unavailable", http.StatusNotFound)
		return
	}

	info := map[string]interface{}{
		"name":           s.cfg.ModelName,
		"type":           artifact.Model.Type,
		"schema_version": artifact.Model.SchemaVersion,
		"feature_names":  artifact.Model.FeatureNames,
		"metrics":        artifact.Metrics,
		"trained_at":     artifact.TrainedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleFields describes the expected record fields: kind, bounds,
// accepted categories and clinical terminology for each.
func (s *PredictionService) handleFields(w http.ResponseWriter, r *http.Request) {
	fields := make([]map[string]interface{}, 0, len(s.schema.Fields))
	for _, field := range s.schema.Fields {
		entry := map[string]interface{}{
			"name":    field.Name,
			"kind":    field.Kind.String(),
			"default": field.Default,
		}
		if field.Kind == schema.Numeric {
			entry["min"] = field.Min
			entry["max"] = field.Max
		} else {
			entry["categories"] = field.Categories
		}
		if concept, ok := s.catalog.Lookup(field.Name); ok {
			entry["terminology"] = concept
		}
		fields = append(fields, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"schema_version": s.schema.Version,
		"fields":         fields,
	})
}

func (s *PredictionService) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	logs, err := s.repo.Recent(r.Context(), 50)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list predictions")
		http.Error(w, "Failed to list predictions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": logs})
}
