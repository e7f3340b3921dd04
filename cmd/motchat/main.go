package main

import (
	"fmt"
	"os"

	"motchat/internal/config"
	"motchat/pkg/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "motchat",
	Short: "Summarise UK vehicle MOT history with a language model",
	Long: `motchat looks up a vehicle's MOT test history, asks a language model to summarise it
and streams the summary back to a browser page or an interactive terminal.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "配置文件路径，为空时查找 ./configs/config.yaml")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

// loadConfig 加载配置并初始化日志
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}
