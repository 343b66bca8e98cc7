package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/observability/metrics"
	"gorm.io/datatypes"
)

const EventDatasetUpdated = "dataset-updated"

// EventPublisher decouples the service from the kafka producer so tests
// can observe published events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service manages training job lifecycle: queued jobs are run in the
// background under a bounded worker pool and their results persisted.
type Service struct {
	repo      *Repository
	trainer   Trainer
	publisher EventPublisher
	workerSem chan struct{}
}

func NewService(repo *Repository, trainer Trainer, publisher EventPublisher, maxWorkers int) *Service {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Service{
		repo:      repo,
		trainer:   trainer,
		publisher: publisher,
		workerSem: make(chan struct{}, maxWorkers),
	}
}

func (s *Service) Create(ctx context.Context, input CreateJobInput) (models.TrainingJob, error) {
	if input.ModelType == "" {
		input.ModelType = s.trainer.ModelType
	}
	if input.Trigger == "" {
		input.Trigger = "manual"
	}

	jobID := uuid.New()
	job := &JobModel{
		ID:        jobID,
		ModelType: input.ModelType,
		Config:    datatypes.JSONMap(input.Config),
		Status:    StatusQueued,
		Trigger:   input.Trigger,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return models.TrainingJob{}, err
	}
	go s.run(jobID, input)
	return toDomain(job), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.TrainingJob, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.TrainingJob{}, err
	}
	return toDomain(job), nil
}

func (s *Service) List(ctx context.Context, limit int) ([]models.TrainingJob, error) {
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	results := make([]models.TrainingJob, 0, len(jobs))
	for _, job := range jobs {
		copy := job
		results = append(results, toDomain(&copy))
	}
	return results, nil
}

func (s *Service) GetArtifact(ctx context.Context, id uuid.UUID) (Artifact, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return Artifact{}, err
	}
	jobMetrics := map[string]interface{}{}
	if job.Metrics != nil {
		jobMetrics = map[string]interface{}(job.Metrics)
	}
	return Artifact{JobID: job.ID, Path: job.ArtifactPath, Metrics: jobMetrics}, nil
}

// HandleDatasetEvent refits the model when the dataset changes. Wired as
// the kafka consumer handler for the dataset events topic.
func (s *Service) HandleDatasetEvent(ctx context.Context, event models.Event) error {
	if event.Type != EventDatasetUpdated {
		return nil
	}
	logger.Log.WithField("event_id", event.ID).Info("Dataset updated, scheduling refit")
	_, err := s.Create(ctx, CreateJobInput{Trigger: EventDatasetUpdated})
	return err
}

func (s *Service) run(jobID uuid.UUID, input CreateJobInput) {
	s.workerSem <- struct{}{}
	defer func() { <-s.workerSem }()

	ctx := context.Background()
	start := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, jobID, StatusRunning, nil, "", ""); err != nil {
		logger.Log.WithError(err).Error("failed to mark job running")
	}
	if err := s.repo.SetTimestamps(ctx, jobID, &start, nil); err != nil {
		logger.Log.WithError(err).Error("failed to set start timestamp")
	}

	trainer := s.trainer
	trainer.ModelType = input.ModelType

	artifactPath, jobMetrics, err := trainer.Run(ctx, jobID.String())
	if err != nil {
		s.failJob(ctx, jobID, err)
		return
	}

	metrics.ObserveTrainingRun(false)
	if err := s.repo.UpdateStatus(ctx, jobID, StatusCompleted, jobMetrics, artifactPath, ""); err != nil {
		logger.Log.WithError(err).Error("failed to mark job complete")
	}
	completed := time.Now().UTC()
	if err := s.repo.SetTimestamps(ctx, jobID, nil, &completed); err != nil {
		logger.Log.WithError(err).Error("failed to set completion timestamp")
	}

	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, "model-trained", "training-service", map[string]interface{}{
			"job_id":        jobID.String(),
			"model_type":    trainer.ModelType,
			"artifact_path": artifactPath,
			"metrics":       jobMetrics,
		})
		if err != nil {
			logger.Log.WithError(err).Warn("failed to publish model-trained event")
		}
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, err error) {
	logger.Log.WithError(err).Error("training job failed")
	metrics.ObserveTrainingRun(true)
	_ = s.repo.UpdateStatus(ctx, jobID, StatusFailed, nil, "", err.Error())
	completed := time.Now().UTC()
	_ = s.repo.SetTimestamps(ctx, jobID, nil, &completed)
}

func toDomain(job *JobModel) models.TrainingJob {
	result := models.TrainingJob{
		ID:           job.ID,
		ModelType:    job.ModelType,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ArtifactPath: job.ArtifactPath,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Config != nil {
		result.Config = map[string]interface{}(job.Config)
	}
	if job.Metrics != nil {
		result.Metrics = map[string]interface{}(job.Metrics)
	}
	return result
}
