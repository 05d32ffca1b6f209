package crawljob

import (
	"context"
	"encoding/json"
	"fmt"

	"mediacrawl/internal/core/client"
	"mediacrawl/internal/core/job"
	"mediacrawl/internal/logger"
	tasks "mediacrawl/internal/platform/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ClientFactory builds a fresh crawl client per job so every worker task
// owns its session exclusively.
type ClientFactory func() *client.Client

type Service struct {
	job        *job.Service
	tasks      *tasks.Client
	newClient  ClientFactory
	maxRetries int
	log        *logger.Logger
}

func NewService(jobSvc *job.Service, taskClient *tasks.Client, factory ClientFactory, taskMaxRetries int) *Service {
	return &Service{
		job:        jobSvc,
		tasks:      taskClient,
		newClient:  factory,
		maxRetries: taskMaxRetries,
		log:        logger.New("CrawlJobService"),
	}
}

// Submit validates a request, records the pending job, and enqueues it.
func (s *Service) Submit(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	jobID := uuid.NewString()
	if err := s.job.InitPending(ctx, jobID, string(req.Kind)); err != nil {
		return "", err
	}
	payload, err := json.Marshal(taskPayload{JobID: jobID, Request: req})
	if err != nil {
		return "", err
	}
	task := asynq.NewTask(tasks.TaskTypeCrawl, payload)
	if err := s.tasks.Enqueue(task, "default", s.maxRetries); err != nil {
		return "", err
	}
	s.log.LogInfof("job %s enqueued (%s)", jobID, req.Kind)
	return jobID, nil
}

func validate(req Request) error {
	switch req.Kind {
	case KindSearch:
		if req.Keyword == "" {
			return fmt.Errorf("keyword is required for search jobs")
		}
	case KindQuestion:
		if req.QuestionID == "" {
			return fmt.Errorf("question_id is required for question jobs")
		}
	case KindCreator:
		if req.CreatorToken == "" {
			return fmt.Errorf("creator_token is required for creator jobs")
		}
	case KindComments:
		if req.ContentID == "" || req.ContentType == "" {
			return fmt.Errorf("content_id and content_type are required for comment jobs")
		}
	default:
		return fmt.Errorf("unknown job kind %q", req.Kind)
	}
	return nil
}

// HandleCrawlTask is the asynq worker entrypoint for one crawl job.
func (s *Service) HandleCrawlTask(ctx context.Context, task *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("bad task payload: %w", err)
	}
	req := payload.Request
	rec := &job.Record{JobID: payload.JobID, Kind: string(req.Kind)}

	if err := s.job.SetProcessing(ctx, payload.JobID, string(req.Kind)); err != nil {
		s.log.LogError("mark processing", err)
	}

	cl := s.newClient()
	defer cl.Close()

	err := s.run(ctx, cl, req, rec)
	if err != nil {
		s.log.LogErrorf("job %s failed after %d pages: %v", payload.JobID, rec.Pages, err)
		return s.job.Fail(ctx, rec, err)
	}
	s.log.LogInfof("job %s completed: %d pages, %d contents, %d comments",
		payload.JobID, rec.Pages, len(rec.Contents), len(rec.Comments))
	return s.job.Complete(ctx, rec)
}

func (s *Service) run(ctx context.Context, cl *client.Client, req Request, rec *job.Record) error {
	onContents := func(items []client.ContentItem) error {
		rec.Pages++
		for _, it := range items {
			rec.Contents = append(rec.Contents, it.Raw)
		}
		return nil
	}
	onComments := func(items []client.CommentItem) error {
		rec.Pages++
		for _, it := range items {
			rec.Comments = append(rec.Comments, it.Raw)
		}
		return nil
	}

	switch req.Kind {
	case KindSearch:
		_, err := cl.Search(ctx, req.Keyword, client.SearchOptions{
			Sort:         req.Sort,
			TimeInterval: req.TimeInterval,
			MaxItems:     req.MaxItems,
		}, onContents)
		return err

	case KindQuestion:
		_, err := cl.GetAllAnswersByQuestion(ctx, req.QuestionID, req.Order, req.MaxItems, onContents)
		return err

	case KindCreator:
		// The three listings are independent walks: one failing is logged
		// and skipped, the others still run and the job keeps its partial
		// results.
		var firstErr error
		walks := []func() error{
			func() error { _, err := cl.GetAllAnswersByCreator(ctx, req.CreatorToken, onContents); return err },
			func() error { _, err := cl.GetAllArticlesByCreator(ctx, req.CreatorToken, onContents); return err },
			func() error { _, err := cl.GetAllVideosByCreator(ctx, req.CreatorToken, onContents); return err },
		}
		for _, walk := range walks {
			if err := walk(); err != nil {
				if ctx.Err() != nil {
					return err
				}
				s.log.LogWarnf("creator %s: listing walk failed, skipping: %v", req.CreatorToken, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		if len(rec.Contents) == 0 && firstErr != nil {
			return firstErr
		}
		return nil

	case KindComments:
		item := client.ContentItem{ID: req.ContentID, Type: req.ContentType}
		_, err := cl.GetAllComments(ctx, item, onComments)
		return err

	default:
		return fmt.Errorf("unknown job kind %q", req.Kind)
	}
}
