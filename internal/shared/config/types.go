package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	InstanceID   string `mapstructure:"instance_id"`
	ReadTimeout  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeout int    `mapstructure:"write_timeout_seconds"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects a gorm dialector by Driver ("postgres", "mysql" or "sqlite").
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout_seconds"`
}

func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	case "sqlite":
		return d.Database
	default:
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

// RedisConfig accepts either URL (REDIS_URL) or discrete host/port settings.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	ClientID         string `mapstructure:"client_id"`
	GameEventsTopic  string `mapstructure:"game_events_topic"`
	MatchesTopic     string `mapstructure:"matches_topic"`
	RatingTopic      string `mapstructure:"rating_topic"`
	ConsumerGroup    string `mapstructure:"consumer_group"`
	PublishRetries   int    `mapstructure:"publish_retries"`
	WriteTimeoutMS   int    `mapstructure:"write_timeout_ms"`
	BackfillIdleMS   int    `mapstructure:"backfill_idle_ms"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type MatchmakingConfig struct {
	HeartbeatTimeoutSeconds  int    `mapstructure:"heartbeat_timeout_seconds"`
	InitialRatingWindow      int    `mapstructure:"initial_rating_window"`
	WideningStep             int    `mapstructure:"widening_step"`
	WideningIntervalSeconds  int    `mapstructure:"widening_interval_seconds"`
	MaxRatingWindow          int    `mapstructure:"max_rating_window"`
	MaxQueueTimeSeconds      int    `mapstructure:"max_queue_time_seconds"`
	ProposalTimeoutSeconds   int    `mapstructure:"proposal_timeout_seconds"`
	MaxPartySize             int    `mapstructure:"max_party_size"`
	MaxPartyMMRSpread        int    `mapstructure:"max_party_mmr_spread"`
	CycleIntervalMS          int    `mapstructure:"cycle_interval_ms"`
	ReaperIntervalSeconds    int    `mapstructure:"reaper_interval_seconds"`
	FailedMatchRetryDelay    int    `mapstructure:"failed_match_retry_delay_seconds"`
	FailedMatchMaxRetries    int    `mapstructure:"failed_match_max_retries"`
	FailedMatchRetryInterval int    `mapstructure:"failed_match_retry_interval_seconds"`
	LiveGameURL              string `mapstructure:"live_game_url"`
	LiveGameTimeoutSeconds   int    `mapstructure:"live_game_timeout_seconds"`
	DefaultRegion            string `mapstructure:"default_region"`
}

func (m *MatchmakingConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(m.HeartbeatTimeoutSeconds) * time.Second
}

func (m *MatchmakingConfig) WideningInterval() time.Duration {
	return time.Duration(m.WideningIntervalSeconds) * time.Second
}

func (m *MatchmakingConfig) MaxQueueTime() time.Duration {
	return time.Duration(m.MaxQueueTimeSeconds) * time.Second
}

func (m *MatchmakingConfig) ProposalTimeout() time.Duration {
	return time.Duration(m.ProposalTimeoutSeconds) * time.Second
}

type GameConfig struct {
	MaxRatedRatingDifference int    `mapstructure:"max_rated_rating_difference"`
	AllowCustomFENRated      bool   `mapstructure:"allow_custom_fen_rated"`
	AllowOddsRated           bool   `mapstructure:"allow_odds_rated"`
	CacheTTLSeconds          int    `mapstructure:"cache_ttl_seconds"`
	BotOrchestratorURL       string `mapstructure:"bot_orchestrator_url"`
	BotMoveTimeoutSeconds    int    `mapstructure:"bot_move_timeout_seconds"`
	ReplayTTLSeconds         int    `mapstructure:"replay_ttl_seconds"`
	ExpirySweepIntervalMS    int    `mapstructure:"expiry_sweep_interval_ms"`
	ExpirySweepBatchSize     int    `mapstructure:"expiry_sweep_batch_size"`
	AbandonAfterSeconds      int    `mapstructure:"abandon_after_seconds"`
}

// ChallengeConfig bounds how long a direct challenge waits for an answer.
type ChallengeConfig struct {
	TTLSeconds            int `mapstructure:"ttl_seconds"`
	ExpiryIntervalSeconds int `mapstructure:"expiry_interval_seconds"`
}

type RatingConfig struct {
	GlickoTau             float64 `mapstructure:"glicko_tau"`
	OutboxEnabled         bool    `mapstructure:"outbox_enabled"`
	OutboxBatchSize       int     `mapstructure:"outbox_batch_size"`
	OutboxIntervalSeconds int     `mapstructure:"outbox_interval_seconds"`
	OutboxSink            string  `mapstructure:"outbox_sink"`
	ConsumerEnabled       bool    `mapstructure:"consumer_enabled"`
}

type BotConfig struct {
	EngineURL               string `mapstructure:"engine_url"`
	KnowledgeURL            string `mapstructure:"knowledge_url"`
	TotalTimeoutSeconds     int    `mapstructure:"total_timeout_seconds"`
	EngineTimeoutSeconds    int    `mapstructure:"engine_timeout_seconds"`
	KnowledgeTimeoutSeconds int    `mapstructure:"knowledge_timeout_seconds"`
}

type BreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	SuccessThreshold int `mapstructure:"success_threshold"`
}

type RateLimitConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	MoveLimit           int  `mapstructure:"move_limit"`
	MoveWindowSeconds   int  `mapstructure:"move_window_seconds"`
	IPLimit             int  `mapstructure:"ip_limit"`
	IPWindowSeconds     int  `mapstructure:"ip_window_seconds"`
	WSMessagesPerSecond int  `mapstructure:"ws_messages_per_second"`
	WSBurst             int  `mapstructure:"ws_burst"`
}
