package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsServed  atomic.Int64
	predictionsAtRisk  atomic.Int64
	predictionFailures atomic.Int64
	extractionsServed  atomic.Int64
	extractionFailures atomic.Int64
	ocrCacheHits       atomic.Int64
	trainingCompleted  atomic.Int64
	trainingFailed     atomic.Int64
)

func Init() {}

func ObservePrediction(atRisk bool) {
	predictionsServed.Add(1)
	if atRisk {
		predictionsAtRisk.Add(1)
	}
}

func ObservePredictionFailure() {
	predictionFailures.Add(1)
}

func ObserveExtraction(failed bool) {
	extractionsServed.Add(1)
	if failed {
		extractionFailures.Add(1)
	}
}

func ObserveOCRCacheHit() {
	ocrCacheHits.Add(1)
}

func ObserveTrainingRun(failed bool) {
	if failed {
		trainingFailed.Add(1)
	} else {
		trainingCompleted.Add(1)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP kidneysync_predictions_served_total Number of risk predictions served since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_predictions_served_total counter\n")
	fmt.Fprintf(w, "kidneysync_predictions_served_total %d\n", predictionsServed.Load())

	fmt.Fprintf(w, "# HELP kidneysync_predictions_at_risk_total Number of predictions with an at-risk verdict since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_predictions_at_risk_total counter\n")
	fmt.Fprintf(w, "kidneysync_predictions_at_risk_total %d\n", predictionsAtRisk.Load())

	fmt.Fprintf(w, "# HELP kidneysync_prediction_failures_total Number of prediction requests that failed since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_prediction_failures_total counter\n")
	fmt.Fprintf(w, "kidneysync_prediction_failures_total %d\n", predictionFailures.Load())

	fmt.Fprintf(w, "# HELP kidneysync_extractions_served_total Number of report extraction requests handled since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_extractions_served_total counter\n")
	fmt.Fprintf(w, "kidneysync_extractions_served_total %d\n", extractionsServed.Load())

	fmt.Fprintf(w, "# HELP kidneysync_extraction_failures_total Number of report extractions where OCR failed since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_extraction_failures_total counter\n")
	fmt.Fprintf(w, "kidneysync_extraction_failures_total %d\n", extractionFailures.Load())

	fmt.Fprintf(w, "# HELP kidneysync_ocr_cache_hits_total Number of OCR results served from cache since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_ocr_cache_hits_total counter\n")
	fmt.Fprintf(w, "kidneysync_ocr_cache_hits_total %d\n", ocrCacheHits.Load())

	fmt.Fprintf(w, "# HELP kidneysync_training_completed_total Number of training runs completed since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_training_completed_total counter\n")
	fmt.Fprintf(w, "kidneysync_training_completed_total %d\n", trainingCompleted.Load())

	fmt.Fprintf(w, "# HELP kidneysync_training_failed_total Number of training runs that failed since start.\n")
	fmt.Fprintf(w, "# TYPE kidneysync_training_failed_total counter\n")
	fmt.Fprintf(w, "kidneysync_training_failed_total %d\n", trainingFailed.Load())
}
