package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Model  ModelConfig  `mapstructure:"model"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Doubao DoubaoConfig `mapstructure:"doubao"`
	Qwen   QwenConfig   `mapstructure:"qwen"`
	MOT    MOTConfig    `mapstructure:"mot"`
	Stream StreamConfig `mapstructure:"stream"`
	Client ClientConfig `mapstructure:"client"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// ModelConfig 选择生成摘要使用的模型提供方
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Prompt   string `mapstructure:"prompt"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type DoubaoConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

// MOTConfig MOT 历史查询 API 的凭据
type MOTConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scope        string        `mapstructure:"scope"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type StreamConfig struct {
	JobTTL            time.Duration `mapstructure:"job_ttl"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// KeepSuperseded 保留被新提交取代、尚未推送的任务（按 session_id 取用时开启）
	KeepSuperseded bool `mapstructure:"keep_superseded"`
}

// ClientConfig 终端客户端配置
type ClientConfig struct {
	ServerURL      string        `mapstructure:"server_url"`
	Correlate      bool          `mapstructure:"correlate"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	defaultConfigDir  = "configs"
	defaultConfigName = "config"
)

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	// 流式响应不设置写超时
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("model.provider", "openai")
	v.SetDefault("model.prompt", "Summarize the following vehicle MOT history:\n\n")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("openai.model", "gemini-2.0-flash")

	v.SetDefault("doubao.api_key", "")
	v.SetDefault("doubao.base_url", "")
	v.SetDefault("doubao.model", "")

	v.SetDefault("qwen.api_key", "")
	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 2048)
	v.SetDefault("qwen.temperature", 0.7)
	v.SetDefault("qwen.top_p", 0.9)
	v.SetDefault("qwen.timeout", 60*time.Second)
	v.SetDefault("qwen.debug_request", false)

	v.SetDefault("mot.base_url", "https://history.mot.api.gov.uk/v1/trade/vehicles/registration")
	v.SetDefault("mot.token_url", "")
	v.SetDefault("mot.client_id", "")
	v.SetDefault("mot.client_secret", "")
	v.SetDefault("mot.scope", "")
	v.SetDefault("mot.api_key", "")
	v.SetDefault("mot.timeout", 30*time.Second)
	v.SetDefault("mot.debug_request", false)

	v.SetDefault("stream.job_ttl", 10*time.Minute)
	v.SetDefault("stream.cleanup_interval", time.Minute)
	v.SetDefault("stream.heartbeat_interval", 15*time.Second)
	v.SetDefault("stream.keep_superseded", false)

	v.SetDefault("client.server_url", "http://localhost:5000")
	v.SetDefault("client.correlate", false)
	v.SetDefault("client.request_timeout", 0)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type"})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load 读取配置文件和环境变量。configPath 为空时查找 ./configs/config.yaml，找不到则只使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MOTCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = firstEnv("GEMINI_API_KEY", "OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		c.Doubao.APIKey = firstEnv("ARK_API_KEY", "DOUBAO_API_KEY")
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = firstEnv("DASHSCOPE_API_KEY")
	}

	cfg = c
	return c, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func Get() *Config {
	return cfg
}
