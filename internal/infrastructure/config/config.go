// Package config loads the process configuration from configs/config.yaml,
// an optional .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/chessforge/gamecore/internal/shared/config"
)

type Config struct {
	Server      sharedConfig.ServerConfig      `mapstructure:"server"`
	Database    sharedConfig.DatabaseConfig    `mapstructure:"database"`
	Logger      sharedConfig.LoggerConfig      `mapstructure:"logger"`
	JWT         sharedConfig.JWTConfig         `mapstructure:"jwt"`
	Redis       sharedConfig.RedisConfig       `mapstructure:"redis"`
	Kafka       sharedConfig.KafkaConfig       `mapstructure:"kafka"`
	AMQP        sharedConfig.AMQPConfig        `mapstructure:"amqp"`
	Matchmaking sharedConfig.MatchmakingConfig `mapstructure:"matchmaking"`
	Game        sharedConfig.GameConfig        `mapstructure:"game"`
	Challenge   sharedConfig.ChallengeConfig   `mapstructure:"challenge"`
	Rating      sharedConfig.RatingConfig      `mapstructure:"rating"`
	Bot         sharedConfig.BotConfig         `mapstructure:"bot"`
	Breaker     sharedConfig.BreakerConfig     `mapstructure:"breaker"`
	RateLimit   sharedConfig.RateLimitConfig   `mapstructure:"rate_limit"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// envAliases binds the flat environment names operators already use to their
// nested keys. Anything else follows the GAMECORE_SECTION_KEY convention.
var envAliases = map[string]string{
	"kafka.bootstrap_servers":               "KAFKA_BOOTSTRAP_SERVERS",
	"kafka.enabled":                         "KAFKA_ENABLED",
	"kafka.game_events_topic":               "KAFKA_GAME_EVENTS_TOPIC",
	"kafka.matches_topic":                   "KAFKA_MATCHES_TOPIC",
	"redis.url":                             "REDIS_URL",
	"matchmaking.heartbeat_timeout_seconds": "HEARTBEAT_TIMEOUT_SECONDS",
	"matchmaking.initial_rating_window":     "INITIAL_RATING_WINDOW",
	"matchmaking.widening_step":             "RATING_WINDOW_WIDENING_STEP",
	"matchmaking.widening_interval_seconds": "RATING_WINDOW_WIDENING_INTERVAL_SECONDS",
	"matchmaking.max_rating_window":         "RATING_WINDOW_MAX",
	"matchmaking.max_queue_time_seconds":    "MAX_QUEUE_TIME_SECONDS",
	"matchmaking.live_game_url":             "LIVE_GAME_API_URL",
	"game.max_rated_rating_difference":      "MAX_RATED_RATING_DIFFERENCE",
	"game.allow_custom_fen_rated":           "ALLOW_CUSTOM_FEN_RATED",
	"game.allow_odds_rated":                 "ALLOW_ODDS_RATED",
	"game.cache_ttl_seconds":                "GAME_CACHE_TTL_SECONDS",
	"game.bot_orchestrator_url":             "BOT_ORCHESTRATOR_URL",
	"challenge.ttl_seconds":                 "CHALLENGE_TTL_SECONDS",
	"rating.glicko_tau":                     "GLICKO_TAU",
	"rating.outbox_enabled":                 "OUTBOX_ENABLED",
	"rating.outbox_sink":                    "RATING_OUTBOX_SINK",
	"bot.engine_url":                        "ENGINE_CLUSTER_URL",
	"bot.knowledge_url":                     "CHESS_KNOWLEDGE_URL",
	"amqp.url":                              "AMQP_URL",
	"database.driver":                       "DATABASE_DRIVER",
	"jwt.secret":                            "JWT_SECRET",
}

// Load reads configuration. The config file is optional; environment
// variables always win over file values.
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("GAMECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, envName := range envAliases {
		if err := v.BindEnv(key, "GAMECORE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), envName); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envName, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Set(&cfg)
	return &cfg, nil
}

// Validate rejects settings the core cannot run with.
func (c *Config) Validate() error {
	if c.Matchmaking.HeartbeatTimeoutSeconds <= 0 {
		return fmt.Errorf("matchmaking.heartbeat_timeout_seconds must be positive")
	}
	if c.Matchmaking.WideningIntervalSeconds <= 0 {
		return fmt.Errorf("matchmaking.widening_interval_seconds must be positive")
	}
	if c.Rating.GlickoTau <= 0 {
		return fmt.Errorf("rating.glicko_tau must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Get returns the loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Set replaces the global configuration; tests use it directly.
func Set(cfg *Config) {
	appConfigMu.Lock()
	appConfig = cfg
	appConfigMu.Unlock()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "gamecore")
	v.SetDefault("database.password", "gamecore")
	v.SetDefault("database.database", "gamecore")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.query_timeout_seconds", 30)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "gamecore")
	v.SetDefault("jwt.access_exp_minutes", 60)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.bootstrap_servers", "localhost:9092")
	v.SetDefault("kafka.client_id", "gamecore")
	v.SetDefault("kafka.game_events_topic", "game.events")
	v.SetDefault("kafka.matches_topic", "matchmaking.matches")
	v.SetDefault("kafka.rating_topic", "rating.updated")
	v.SetDefault("kafka.consumer_group", "rating-engine")
	v.SetDefault("kafka.publish_retries", 3)
	v.SetDefault("kafka.write_timeout_ms", 10000)
	v.SetDefault("kafka.backfill_idle_ms", 5000)

	v.SetDefault("amqp.exchange", "rating")

	v.SetDefault("matchmaking.heartbeat_timeout_seconds", 30)
	v.SetDefault("matchmaking.initial_rating_window", 100)
	v.SetDefault("matchmaking.widening_step", 25)
	v.SetDefault("matchmaking.widening_interval_seconds", 10)
	v.SetDefault("matchmaking.max_rating_window", 500)
	v.SetDefault("matchmaking.max_queue_time_seconds", 600)
	v.SetDefault("matchmaking.proposal_timeout_seconds", 15)
	v.SetDefault("matchmaking.max_party_size", 4)
	v.SetDefault("matchmaking.max_party_mmr_spread", 400)
	v.SetDefault("matchmaking.cycle_interval_ms", 1000)
	v.SetDefault("matchmaking.reaper_interval_seconds", 5)
	v.SetDefault("matchmaking.failed_match_retry_delay_seconds", 60)
	v.SetDefault("matchmaking.failed_match_max_retries", 5)
	v.SetDefault("matchmaking.failed_match_retry_interval_seconds", 10)
	v.SetDefault("matchmaking.live_game_timeout_seconds", 5)
	v.SetDefault("matchmaking.default_region", "DEFAULT")

	v.SetDefault("game.max_rated_rating_difference", 500)
	v.SetDefault("game.allow_custom_fen_rated", false)
	v.SetDefault("game.allow_odds_rated", false)
	v.SetDefault("game.cache_ttl_seconds", 3600)
	v.SetDefault("game.bot_move_timeout_seconds", 30)
	v.SetDefault("game.replay_ttl_seconds", 3600)
	v.SetDefault("game.expiry_sweep_interval_ms", 1000)
	v.SetDefault("game.expiry_sweep_batch_size", 500)
	v.SetDefault("game.abandon_after_seconds", 60)

	v.SetDefault("challenge.ttl_seconds", 300)
	v.SetDefault("challenge.expiry_interval_seconds", 30)

	v.SetDefault("rating.glicko_tau", 0.5)
	v.SetDefault("rating.outbox_enabled", true)
	v.SetDefault("rating.outbox_batch_size", 100)
	v.SetDefault("rating.outbox_interval_seconds", 2)
	v.SetDefault("rating.outbox_sink", "kafka")
	v.SetDefault("rating.consumer_enabled", true)

	v.SetDefault("bot.total_timeout_seconds", 30)
	v.SetDefault("bot.engine_timeout_seconds", 20)
	v.SetDefault("bot.knowledge_timeout_seconds", 5)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.timeout_seconds", 60)
	v.SetDefault("breaker.success_threshold", 2)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.move_limit", 10)
	v.SetDefault("rate_limit.move_window_seconds", 60)
	v.SetDefault("rate_limit.ip_limit", 50)
	v.SetDefault("rate_limit.ip_window_seconds", 60)
	v.SetDefault("rate_limit.ws_messages_per_second", 5)
	v.SetDefault("rate_limit.ws_burst", 10)
}
