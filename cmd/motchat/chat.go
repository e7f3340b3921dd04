package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"motchat/internal/client"
	"motchat/pkg/logger"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// 日志写到 stderr，避免和对话内容混在一起
		logger.SetOutput(os.Stderr)

		if cmd.Flags().Changed("server") {
			cfg.Client.ServerURL, _ = cmd.Flags().GetString("server")
		}
		if cmd.Flags().Changed("correlate") {
			cfg.Client.Correlate, _ = cmd.Flags().GetBool("correlate")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		term := client.NewTerminal(os.Stdout)
		input := client.NewLineInput("registration> ")
		defer input.Close()

		form := client.NewChatForm(client.NewClientFromConfig(cfg.Client), term, input, term)
		defer form.Close()

		fmt.Fprintf(os.Stdout, "Connected to %s. Enter a registration number, Ctrl-D to quit.\n", cfg.Client.ServerURL)

		for ctx.Err() == nil {
			if err := input.Read(); err != nil {
				if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}

			session, err := form.Submit(ctx)
			if err != nil {
				logger.Errorf("Chat request failed: %v", err)
				continue
			}
			if session != nil {
				select {
				case <-session.Done():
				case <-ctx.Done():
				}
			}
			term.Break()
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().String("server", "", "服务器地址，覆盖配置文件中的 client.server_url")
	chatCmd.Flags().Bool("correlate", false, "在 /stream 请求中携带 session_id")
}
