package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"motchat/internal/config"
	"motchat/internal/model"
	"motchat/internal/mot"
	"motchat/internal/service"
	"motchat/internal/utils"
	"motchat/pkg/logger"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
)

// 以 "Error:" 开头的数据帧由客户端视为终止错误
const (
	MsgRequestFailed = "Error processing your request. Please try again."
	MsgNoSummary     = "Error: No summary available. Please submit a registration first."
	MsgStreamFailed  = "Error: Problem streaming summary from model. Please try again."
)

type ChatHandler struct {
	summaryService *service.SummaryService
	heartbeat      time.Duration
}

func NewChatHandler(summaryService *service.SummaryService, cfg config.StreamConfig) *ChatHandler {
	return &ChatHandler{
		summaryService: summaryService,
		heartbeat:      cfg.HeartbeatInterval,
	}
}

// Chat POST /chat：查询 MOT 历史并启动摘要生成，生成结果通过 /stream 推送
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ChatResponse{Success: false, Error: err.Error()})
		return
	}

	jobID, err := h.summaryService.Start(c.Request.Context(), req.Registration)
	switch {
	case errors.Is(err, service.ErrRegistrationRequired):
		c.JSON(http.StatusBadRequest, model.ChatResponse{Success: false, Error: err.Error()})
		return
	case errors.Is(err, mot.ErrNoTestData):
		c.JSON(http.StatusBadRequest, model.ChatResponse{Success: false, Error: mot.NoTestDataMessage})
		return
	case err != nil:
		logger.Errorf("Error processing MOT data or model request: %v", err)
		c.JSON(http.StatusInternalServerError, model.ChatResponse{Success: false, Error: MsgRequestFailed})
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{Success: true, SessionID: jobID})
}

type streamResult struct {
	content string
	err     error
}

// Stream GET /stream：把暂存的模型流逐块推送给客户端
func (h *ChatHandler) Stream(c *gin.Context) {
	sseWriter, err := utils.NewSSEWriter(c.Writer)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusOK)

	job, err := h.summaryService.Take(c.Query("session_id"))
	if err != nil {
		logger.Warnf("Stream requested without a pending summary: %v", err)
		if err := sseWriter.Message(MsgNoSummary); err != nil {
			logger.Errorf("Failed to write SSE: %v", err)
		}
		return
	}
	defer job.Release()

	log := logger.WithField("job_id", job.ID)
	done := make(chan struct{})
	defer close(done)
	results := pump(job.Stream, done)

	var heartbeat <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stream client disconnected")
			return

		case res, ok := <-results:
			if !ok {
				log.Info("Summary stream completed")
				if err := sseWriter.Close(); err != nil {
					log.Errorf("Failed to write SSE: %v", err)
				}
				return
			}
			if res.err != nil {
				log.Errorf("Error during summary streaming: %v", res.err)
				if err := sseWriter.Message(MsgStreamFailed); err != nil {
					log.Errorf("Failed to write SSE: %v", err)
				}
				return
			}
			if err := sseWriter.Message(res.content); err != nil {
				log.Errorf("Failed to write SSE: %v", err)
				return
			}

		case <-heartbeat:
			if err := sseWriter.Comment("ping"); err != nil {
				log.Warnf("Heartbeat failed: %v", err)
				return
			}
		}
	}
}

func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	})
}

// pump 在独立 goroutine 中读取模型流，空块被跳过
func pump(sr *schema.StreamReader[*schema.Message], done <-chan struct{}) <-chan streamResult {
	out := make(chan streamResult)
	go func() {
		defer close(out)
		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			var res streamResult
			if err != nil {
				res.err = err
			} else if msg == nil || msg.Content == "" {
				continue
			} else {
				res.content = msg.Content
			}

			select {
			case out <- res:
			case <-done:
				return
			}
			if res.err != nil {
				return
			}
		}
	}()
	return out
}
