package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kidneysync/platform/pkg/common/config"
	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/extract"
	"github.com/kidneysync/platform/pkg/ml/linear"
	"github.com/kidneysync/platform/pkg/ocr"
	"github.com/kidneysync/platform/pkg/pipeline"
	"github.com/kidneysync/platform/pkg/schema"
	"github.com/kidneysync/platform/pkg/serving/predictor"
	"github.com/kidneysync/platform/pkg/terminology"
)

func TestMain(m *testing.M) {
	logger.Init("prediction-service-test")
	os.Exit(m.Run())
}

type failingEngine struct{}

func (failingEngine) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	return "", ocr.NewTransportError(errors.New("connection refused"))
}

type stubEngine struct {
	text string
}

func (s stubEngine) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	return s.text, nil
}

// newTestService builds a service backed by a logistic artifact whose
// bias keeps every prediction below the risk threshold.
func newTestService(t *testing.T, engine ocr.Engine) *PredictionService {
	t.Helper()
	ckd := schema.CKD()

	var artifact predictor.Artifact
	artifact.Model.Type = predictor.ModelTypeLogistic
	artifact.Model.SchemaVersion = ckd.Version
	artifact.Model.SchemaFingerprint = ckd.Fingerprint()
	artifact.Model.FeatureNames = ckd.Names()
	artifact.Model.Logistic = &linear.Model{Bias: -2, Coefficients: make([]float64, len(ckd.Fields))}
	artifact.TrainedAt = time.Now().UTC()

	payload, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("failed to marshal artifact: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ckd-risk_latest.json"), payload, 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	extractor, err := extract.NewExtractor(extract.DefaultRules())
	if err != nil {
		t.Fatalf("failed to build extractor: %v", err)
	}

	return &PredictionService{
		cfg: &config.Config{
			ModelName:      "ckd-risk",
			MaxUploadBytes: 1 << 20,
			OCRTimeout:     time.Second,
		},
		schema:    ckd,
		extractor: extractor,
		engine:    engine,
		predictor: predictor.NewPredictor(dir, ckd),
		catalog:   terminology.DefaultCatalog(),
	}
}

func uploadRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("report", "report.png")
	if err != nil {
		t.Fatalf("failed to build upload: %v", err)
	}
	part.Write([]byte("fake image bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestReportPredictDegradesWhenOCRFails(t *testing.T) {
	service := newTestService(t, failingEngine{})

	rec := httptest.NewRecorder()
	service.handleReportPredict(rec, uploadRequest(t, "/api/v1/reports/predict"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ReportPredictionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Extraction.ExtractionFailed {
		t.Fatal("expected extraction_failed to be set")
	}
	if len(resp.Extraction.Fields) != 0 {
		t.Fatalf("expected no extracted fields, got %v", resp.Extraction.Fields)
	}
	if resp.Prediction.Verdict != pipeline.VerdictHealthy {
		t.Fatalf("expected default-record verdict %q, got %q", pipeline.VerdictHealthy, resp.Prediction.Verdict)
	}
	if resp.Prediction.Label != 0 {
		t.Fatalf("expected label 0 from defaults, got %d", resp.Prediction.Label)
	}
}

func TestExtractDegradesWhenOCRFails(t *testing.T) {
	service := newTestService(t, failingEngine{})

	rec := httptest.NewRecorder()
	service.handleExtract(rec, uploadRequest(t, "/api/v1/reports/extract"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ExtractionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.ExtractionFailed {
		t.Fatal("expected extraction_failed to be set")
	}
	if len(resp.Fields) != 0 {
		t.Fatalf("expected no fields, got %v", resp.Fields)
	}
}

func TestReportPredictExtractsFields(t *testing.T) {
	service := newTestService(t, stubEngine{text: "Age: 63\nBlood Pressure: 95\nRed Blood Cells: abnormal"})

	rec := httptest.NewRecorder()
	service.handleReportPredict(rec, uploadRequest(t, "/api/v1/reports/predict"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ReportPredictionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Extraction.ExtractionFailed {
		t.Fatal("extraction should succeed")
	}
	if resp.Extraction.Fields["age"] != "63" {
		t.Fatalf("expected age 63, got %q", resp.Extraction.Fields["age"])
	}
	if resp.Extraction.Fields["bp"] != "95" {
		t.Fatalf("expected bp 95, got %q", resp.Extraction.Fields["bp"])
	}
	if resp.Extraction.Fields["rbc"] != "abnormal" {
		t.Fatalf("expected rbc abnormal, got %q", resp.Extraction.Fields["rbc"])
	}
	if resp.Prediction.Verdict == "" {
		t.Fatal("expected a verdict")
	}
}
