package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// EngineConfig holds every tunable of the fit/recommend pipeline. The
// defaults are illustrative, not contractual; callers own the values.
type EngineConfig struct {
	MinInteractions  int                `mapstructure:"min_interactions" validate:"min=1"`
	ActionWeights    ActionWeightConfig `mapstructure:"action_weights"`
	TopKSimilarUsers int                `mapstructure:"top_k_similar_users" validate:"min=1"`
	Weights          HybridWeights      `mapstructure:"weights"`
	RefitInterval    time.Duration      `mapstructure:"refit_interval" validate:"min=0"`
}

// ActionWeightConfig maps each implicit action to the weight it contributes
// to the interaction matrix. Purchase > cart > view.
type ActionWeightConfig struct {
	View     float64 `mapstructure:"view" validate:"gt=0"`
	Cart     float64 `mapstructure:"cart" validate:"gt=0"`
	Purchase float64 `mapstructure:"purchase" validate:"gt=0"`
}

// HybridWeights blends the three scoring strategies. Weights are expected
// to sum to 1; that is the caller's responsibility and is not enforced.
type HybridWeights struct {
	Item    float64 `mapstructure:"item" validate:"min=0"`
	User    float64 `mapstructure:"user" validate:"min=0"`
	Content float64 `mapstructure:"content" validate:"min=0"`
}

type EvaluationConfig struct {
	K            int     `mapstructure:"k" validate:"min=1"`
	HoldoutRatio float64 `mapstructure:"holdout_ratio" validate:"gt=0,lt=1"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	PoolSize int           `mapstructure:"pool_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		Interactions    string `mapstructure:"interactions"`
		InteractionsDLQ string `mapstructure:"interactions_dlq"`
	} `mapstructure:"topics"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	viper.SetConfigName("recsys")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the engine and evaluation parameters once at the
// fit/recommend boundary.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Engine.ActionWeights.Purchase <= c.Engine.ActionWeights.Cart ||
		c.Engine.ActionWeights.Cart <= c.Engine.ActionWeights.View {
		return fmt.Errorf("invalid configuration: action weights must satisfy purchase > cart > view")
	}
	return nil
}

func setDefaults() {
	// Engine defaults
	viper.SetDefault("engine.min_interactions", 2)
	viper.SetDefault("engine.action_weights.view", 1.0)
	viper.SetDefault("engine.action_weights.cart", 2.0)
	viper.SetDefault("engine.action_weights.purchase", 3.0)
	viper.SetDefault("engine.top_k_similar_users", 10)
	viper.SetDefault("engine.weights.item", 0.4)
	viper.SetDefault("engine.weights.user", 0.3)
	viper.SetDefault("engine.weights.content", 0.3)
	viper.SetDefault("engine.refit_interval", "30m")

	// Evaluation defaults
	viper.SetDefault("evaluation.k", 10)
	viper.SetDefault("evaluation.holdout_ratio", 0.2)

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.cache_ttl", "15m")

	// Kafka defaults
	viper.SetDefault("kafka.topics.interactions", "user-interactions")
	viper.SetDefault("kafka.topics.interactions_dlq", "user-interactions-dlq")
	viper.SetDefault("kafka.consumer_group", "interaction-ingesters")

	// Metrics defaults
	viper.SetDefault("metrics.addr", ":9090")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
