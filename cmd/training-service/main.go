package main

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/kidneysync/platform/pkg/observability/metrics"
	"github.com/kidneysync/platform/pkg/schema"
	"github.com/kidneysync/platform/pkg/training"
)

type TrainingAPI struct {
	service *training.Service
}

func main() {
	logger.Init("training-service")
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := training.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate training tables")
	}

	trainer := training.Trainer{
		Schema:      schema.CKD(),
		DatasetPath: cfg.DatasetPath,
		LabelColumn: cfg.LabelColumn,
		ArtifactDir: cfg.ModelArtifactDir,
		ModelName:   cfg.ModelName,
		ModelType:   cfg.ModelType,
		TestSplit:   cfg.TrainTestSplit,
		Seed:        cfg.TrainingSeed,
	}

	producer := kafka.NewProducer("model-events")
	defer producer.Close()

	service := training.NewService(repo, trainer, producer, cfg.TrainingMaxWorkers)
	api := &TrainingAPI{service: service}

	// Refit whenever the dataset changes.
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	consumer := kafka.NewConsumer("dataset-events", cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(consumerCtx, service.HandleDatasetEvent); err != nil && err != context.Canceled {
			logger.Log.WithError(err).Error("Dataset event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")
	router.HandleFunc("/api/v1/training/jobs", api.createJob).Methods("POST")
	router.HandleFunc("/api/v1/training/jobs", api.listJobs).Methods("GET")
	router.HandleFunc("/api/v1/training/jobs/{id}", api.getJob).Methods("GET")
	router.HandleFunc("/api/v1/training/jobs/{id}/artifact", api.getArtifact).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8087"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8087",
		}).Info("Training Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Training Service...")
	cancelConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Training Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (a *TrainingAPI) createJob(w http.ResponseWriter, r *http.Request) {
	var input training.CreateJobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	job, err := a.service.Create(r.Context(), input)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to create training job")
		http.Error(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

func (a *TrainingAPI) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.service.List(r.Context(), 50)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list training jobs")
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": jobs})
}

func (a *TrainingAPI) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := a.service.Get(r.Context(), id)
	if err != nil {
		if err == training.ErrJobNotFound {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("Failed to load training job")
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (a *TrainingAPI) getArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	artifact, err := a.service.GetArtifact(r.Context(), id)
	if err != nil {
		if err == training.ErrJobNotFound {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("Failed to load artifact")
		http.Error(w, "Failed to load artifact", http.StatusInternalServerError)
		return
	}
	if artifact.Path == "" {
		http.Error(w, "Artifact not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifact)
}
