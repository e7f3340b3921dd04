package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motchat/internal/handler"
	"motchat/internal/model"
	"motchat/internal/mot"
	"motchat/internal/service"
	"motchat/internal/storage"
	"motchat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		chatModel, err := model.NewSummaryModel(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		// 初始化服务
		summaryService, err := service.NewSummaryService(mot.NewClient(cfg.MOT), chatModel, storage.NewMemoryStorage(storage.WithKeepSuperseded(cfg.Stream.KeepSuperseded)), cfg)
		if err != nil {
			return err
		}
		defer summaryService.Close()

		chatHandler := handler.NewChatHandler(summaryService, cfg.Stream)

		gin.SetMode(gin.ReleaseMode)
		router := handler.NewRouter(cfg, chatHandler)

		server := &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
			serverErrors <- server.ListenAndServe()
		}()

		// 等待信号优雅关闭
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-quit:
		}

		logger.Info("服务器正在关闭...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("服务器关闭失败: %v", err)
			server.Close()
		}
		logger.Info("服务器已关闭")
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "监听端口，覆盖配置文件")
}
