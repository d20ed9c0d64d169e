package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Chatbot    ChatbotConfig    `yaml:"chatbot" mapstructure:"chatbot"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Jobs       JobsConfig       `yaml:"jobs" mapstructure:"jobs"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the external text-generation tool.
type LLMConfig struct {
	// Provider is "cli" (spawn the claude binary) or "api" (Anthropic SDK).
	Provider          string        `yaml:"provider" mapstructure:"provider"`
	Binary            string        `yaml:"binary" mapstructure:"binary"`
	WorkDir           string        `yaml:"work_dir" mapstructure:"work_dir"`
	KnowledgeDir      string        `yaml:"knowledge_dir" mapstructure:"knowledge_dir"`
	Key               string        `yaml:"key" mapstructure:"key"`
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	DefaultTimeout    time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
	ClassifyTimeout   time.Duration `yaml:"classify_timeout" mapstructure:"classify_timeout"`
	BatchTimeout      time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	StructuredReplies bool          `yaml:"structured_replies" mapstructure:"structured_replies"`
}

// BatchConfig configures batched tool invocations.
type BatchConfig struct {
	FactCheckSize    int `yaml:"fact_check_size" mapstructure:"fact_check_size"`
	AnswerSearchSize int `yaml:"answer_search_size" mapstructure:"answer_search_size"`
	CompareSize      int `yaml:"compare_size" mapstructure:"compare_size"`
	Workers          int `yaml:"workers" mapstructure:"workers"`
}

// ClassifierConfig configures the rule-based question classifier.
type ClassifierConfig struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ChatbotConfig points at the live chatbot used for comparisons.
type ChatbotConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	NDocs          int           `yaml:"ndocs" mapstructure:"ndocs"`
	RequestsPerSec float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ServerConfig configures the upload web app.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	Password       string        `yaml:"password" mapstructure:"password"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	StreamInterval time.Duration `yaml:"stream_interval" mapstructure:"stream_interval"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// JobsConfig configures in-memory job retention.
type JobsConfig struct {
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	// MaxConcurrent bounds running analyses; extra jobs wait as pending.
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// StoreConfig configures the job history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. The file must exist when
// path is set.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LOGANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.password", "LOGANALYZER_SERVER_PASSWORD", "LOG_ANALYZER_PASSWORD"); err != nil {
		return nil, eris.Wrap(err, "config: bind password env")
	}
	if err := v.BindEnv("llm.key", "LOGANALYZER_LLM_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind llm key env")
	}
	if err := v.BindEnv("chatbot.base_url", "LOGANALYZER_CHATBOT_BASE_URL", "CHATBOT_URL"); err != nil {
		return nil, eris.Wrap(err, "config: bind chatbot url env")
	}

	// Defaults
	v.SetDefault("llm.provider", "cli")
	v.SetDefault("llm.binary", "claude")
	v.SetDefault("llm.work_dir", ".")
	v.SetDefault("llm.knowledge_dir", "src")
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.default_timeout", 60*time.Second)
	v.SetDefault("llm.classify_timeout", 30*time.Second)
	v.SetDefault("llm.batch_timeout", 180*time.Second)
	v.SetDefault("llm.structured_replies", false)
	v.SetDefault("batch.fact_check_size", 25)
	v.SetDefault("batch.answer_search_size", 25)
	v.SetDefault("batch.compare_size", 10)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("classifier.rules_file", "")
	v.SetDefault("chatbot.base_url", "http://localhost:8787")
	v.SetDefault("chatbot.timeout", 30*time.Second)
	v.SetDefault("chatbot.ndocs", 5)
	v.SetDefault("chatbot.requests_per_sec", 2.0)
	v.SetDefault("chatbot.concurrency", 1)
	v.SetDefault("chatbot.max_attempts", 3)
	v.SetDefault("server.port", 5123)
	v.SetDefault("server.password", "")
	v.SetDefault("server.max_upload_bytes", int64(16<<20))
	v.SetDefault("server.stream_interval", 500*time.Millisecond)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("jobs.ttl", time.Hour)
	v.SetDefault("jobs.sweep_interval", 5*time.Minute)
	v.SetDefault("jobs.max_concurrent", 2)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "loganalyzer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
