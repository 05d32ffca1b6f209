package job

import (
	"context"
	"fmt"

	rds "mediacrawl/internal/platform/redis"
)

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) Get(ctx context.Context, jobID string) (*Record, error) {
	var rec Record
	if err := s.redis.CacheGet(ctx, key(jobID), &rec); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &rec, nil
}

func (s *Service) InitPending(ctx context.Context, jobID, kind string) error {
	return s.store(ctx, &Record{JobID: jobID, Kind: kind, Status: StatusPending})
}

func (s *Service) SetProcessing(ctx context.Context, jobID, kind string) error {
	return s.store(ctx, &Record{JobID: jobID, Kind: kind, Status: StatusProcessing})
}

func (s *Service) Complete(ctx context.Context, rec *Record) error {
	rec.Status = StatusCompleted
	return s.store(ctx, rec)
}

// Fail records a failed job, keeping whatever partial results the walk
// already delivered.
func (s *Service) Fail(ctx context.Context, rec *Record, cause error) error {
	rec.Status = StatusFailed
	rec.Error = cause.Error()
	return s.store(ctx, rec)
}

func (s *Service) store(ctx context.Context, rec *Record) error {
	if err := s.redis.CacheSet(ctx, key(rec.JobID), rec, ttl(rec.Status)); err != nil {
		return err
	}
	// Status change event for any listener polling the job channel.
	_ = s.redis.Client().Publish(ctx, key(rec.JobID), string(rec.Status)).Err()
	return nil
}

func key(id string) string { return "job:" + id }
func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed {
		return 3600
	}
	return 600
}
