package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/metrics"
)

const (
	jobName               = "outbox-publish"
	defaultPublishTimeout = 15 * time.Second
	retryBackoff          = 5 * time.Second
)

type outboxSource interface {
	FetchDue(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, backoff time.Duration) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// topicPublisher adapts the concrete Pub/Sub publisher to the narrow
// surface the service needs, so tests can stand in for the wire.
type topicPublisher struct {
	inner *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.inner.Publish(ctx, msg)
}

// NewTopicPublisher wraps a Pub/Sub publisher handle.
func NewTopicPublisher(inner *gcppubsub.Publisher) publisher {
	if inner == nil {
		return nil
	}
	return topicPublisher{inner: inner}
}

type ServiceParams struct {
	Config    config.OutboxConfig
	Logger    *logger.Logger
	Source    outboxSource
	Publisher publisher
	Metrics   *metrics.JobMetrics
}

// Service drains the outbox: due events go to the domain topic, published
// rows get stamped, failures get their attempt counter bumped so the next
// poll retries them with backoff.
type Service struct {
	logg         *logger.Logger
	source       outboxSource
	publisher    publisher
	jobMetrics   *metrics.JobMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Source == nil {
		return nil, errors.New("outbox source is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	batchSize := params.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	pollMs := params.Config.PollIntervalMS
	if pollMs <= 0 {
		pollMs = 500
	}

	return &Service{
		logg:         params.Logger,
		source:       params.Source,
		publisher:    params.Publisher,
		jobMetrics:   params.Metrics,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.PublishBatch(ctx); err != nil {
				s.logError(ctx, "outbox batch failed", err)
			}
		}
	}
}

// PublishBatch pushes one batch of due events and reports how many were
// published.
func (s *Service) PublishBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { s.jobMetrics.ObserveDuration(jobName, time.Since(start)) }()

	events, err := s.source.FetchDue(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		s.jobMetrics.IncFailure(jobName)
		return 0, err
	}
	if len(events) == 0 {
		s.jobMetrics.IncSuccess(jobName)
		return 0, nil
	}

	published := 0
	var firstErr error
	for _, event := range events {
		if err := s.publishOne(ctx, event); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		published++
	}

	s.jobMetrics.AddProcessed(jobName, published)
	if firstErr != nil {
		s.jobMetrics.IncFailure(jobName)
		return published, firstErr
	}
	s.jobMetrics.IncSuccess(jobName)
	return published, nil
}

func (s *Service) publishOne(ctx context.Context, event models.OutboxEvent) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	})

	if _, err := result.Get(publishCtx); err != nil {
		if markErr := s.source.MarkFailed(ctx, event.ID, err, retryBackoff); markErr != nil {
			s.logError(ctx, "marking outbox event failed", markErr)
		}
		return err
	}

	if err := s.source.MarkPublished(ctx, event.ID); err != nil {
		// The event went out but the stamp failed; the next poll will
		// publish a duplicate, which consumers must tolerate anyway.
		s.logError(ctx, "stamping outbox event published", err)
		return err
	}
	return nil
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(ctx, msg, err)
}
