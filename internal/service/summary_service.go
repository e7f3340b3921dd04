package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"motchat/internal/config"
	"motchat/internal/mot"
	"motchat/internal/storage"
	"motchat/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

var ErrRegistrationRequired = errors.New("Registration number is required")

// SummaryService 处理 /chat 提交：查询 MOT 历史、启动模型流并暂存，等待 /stream 取走
type SummaryService struct {
	fetcher mot.Fetcher
	chain   compose.Runnable[map[string]any, *schema.Message]
	storage storage.Storage
	prompt  string
	config  config.StreamConfig

	stop     chan struct{}
	stopOnce sync.Once
}

func NewSummaryService(fetcher mot.Fetcher, chatModel einoModel.BaseChatModel, store storage.Storage, cfg *config.Config) (*SummaryService, error) {
	chain, err := composeSummaryChain(context.Background(), chatModel)
	if err != nil {
		return nil, fmt.Errorf("compose summary chain: %w", err)
	}

	s := &SummaryService{
		fetcher: fetcher,
		chain:   chain,
		storage: store,
		prompt:  cfg.Model.Prompt,
		config:  cfg.Stream,
		stop:    make(chan struct{}),
	}

	if s.config.CleanupInterval > 0 && s.config.JobTTL > 0 {
		go s.cleanupExpiredJobs()
	}

	return s, nil
}

// Start 返回新任务 ID。没有 MOT 数据时返回的错误包含 mot.ErrNoTestData
func (s *SummaryService) Start(ctx context.Context, registration string) (string, error) {
	if registration == "" {
		return "", ErrRegistrationRequired
	}

	vehicle, err := s.fetcher.VehicleHistory(ctx, registration)
	if err != nil {
		if errors.Is(err, mot.ErrVehicleNotFound) {
			logger.Warnf("No MOT data for vehicle %s: %v", registration, err)
			return "", fmt.Errorf("%w: %v", mot.ErrNoTestData, err)
		}
		return "", fmt.Errorf("fetch MOT history: %w", err)
	}

	summary, err := mot.BuildSummary(vehicle)
	if err != nil {
		logger.Warnf("No MOT test data available for vehicle registration: %s", registration)
		return "", err
	}

	jobID := uuid.New().String()

	// 模型流的生命周期独立于 /chat 请求，由任务 TTL 约束
	jobCtx, cancel := s.jobContext()
	stream, err := s.chain.Stream(jobCtx, map[string]any{
		promptKey:  s.prompt,
		summaryKey: summary,
	}, compose.WithCallbacks(logCallback(jobID)))
	if err != nil {
		cancel()
		return "", fmt.Errorf("start model stream: %w", err)
	}

	job := &storage.Job{
		ID:           jobID,
		Registration: registration,
		Stream:       stream,
		Cancel:       cancel,
		CreatedAt:    time.Now(),
	}
	if err := s.storage.Put(job); err != nil {
		job.Release()
		return "", fmt.Errorf("store summary job: %w", err)
	}

	logger.WithField("job_id", job.ID).Infof("Summary stream started for %s", registration)
	return job.ID, nil
}

// Take 取出待推送的任务，id 为空时取最近一次提交。每个任务只能被取走一次
func (s *SummaryService) Take(id string) (*storage.Job, error) {
	job, err := s.storage.Take(id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SummaryService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.storage.Close()
}

func (s *SummaryService) jobContext() (context.Context, context.CancelFunc) {
	if s.config.JobTTL > 0 {
		return context.WithTimeout(context.Background(), s.config.JobTTL)
	}
	return context.WithCancel(context.Background())
}

func (s *SummaryService) cleanupExpiredJobs() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.storage.Expire(time.Now().Add(-s.config.JobTTL)); n > 0 {
				logger.Infof("Cleaned up %d expired summary jobs", n)
			}
		case <-s.stop:
			return
		}
	}
}
