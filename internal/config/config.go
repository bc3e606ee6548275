// Package config загружает конфигурацию из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Core — настройки, нужные и боту, и clanctl.
type Core struct {
	// --- Database ---
	// Внутри docker-compose база доступна по имени сервиса, для локалки переопредели DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"darkframe"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"darkframe"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Votes ---
	// Доля состава клана, которая должна проголосовать «за»
	VoteQuorumFraction    float64       `envconfig:"VOTE_QUORUM_FRACTION" default:"0.5"`
	VoteWindowTactical    time.Duration `envconfig:"VOTE_WINDOW_TACTICAL" default:"24h"`
	VoteWindowStrategic   time.Duration `envconfig:"VOTE_WINDOW_STRATEGIC" default:"48h"`
	VoteWindowClanBuster  time.Duration `envconfig:"VOTE_WINDOW_CLAN_BUSTER" default:"72h"`
	VoteWindowDefault     time.Duration `envconfig:"VOTE_WINDOW_DEFAULT" default:"48h"`
	VoteEarlyFailDisabled bool          `envconfig:"VOTE_EARLY_FAIL_DISABLED" default:"false"`

	// --- Consequences ---
	RetaliationWindow time.Duration `envconfig:"RETALIATION_WINDOW" default:"720h"`
	// YAML-файл с переопределением таблицы боеголовок (пусто — встроенная таблица)
	ConsequenceTiersFile string `envconfig:"CONSEQUENCE_TIERS_FILE"`
	// Неизвестная боеголовка → самый мягкий тир (true) или отказ (false)
	ConsequenceUnknownFailOpen bool `envconfig:"CONSEQUENCE_UNKNOWN_FAIL_OPEN" default:"true"`

	// --- Observability ---
	MetricsAddr  string `envconfig:"METRICS_ADDR" default:":9102"`
	OtelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OtelEndpoint string `envconfig:"OTEL_ENDPOINT"`
}

// Config содержит ВСЕ настройки бота.
type Config struct {
	Core

	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Игровой чат, в котором бот принимает команды (плюс личка)
	GameChatID int64 `envconfig:"GAME_CHAT_ID" required:"true"`
	// Куда объявлять итоги голосований и удары (0 — в игровой чат)
	AnnounceChatID int64 `envconfig:"ANNOUNCE_CHAT_ID" default:"0"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	JobsExpireSweepSpec string `envconfig:"JOBS_EXPIRE_SWEEP_SPEC" default:"@every 1m"`
	JobsTimezone        string `envconfig:"JOBS_TIMEZONE" default:"Europe/Moscow"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Core) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// VoteWindow возвращает длительность голосования для типа.
// Тип передаётся строкой, чтобы config не зависел от пакета votes.
func (c *Core) VoteWindow(voteType string) time.Duration {
	switch strings.ToUpper(voteType) {
	case "TACTICAL_LAUNCH":
		return c.VoteWindowTactical
	case "STRATEGIC_LAUNCH":
		return c.VoteWindowStrategic
	case "CLAN_BUSTER_LAUNCH":
		return c.VoteWindowClanBuster
	default:
		return c.VoteWindowDefault
	}
}

// Validate проверяет общие настройки.
func (c *Core) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.VoteQuorumFraction <= 0 || c.VoteQuorumFraction > 1 {
		return fmt.Errorf("VOTE_QUORUM_FRACTION должен быть в (0, 1]")
	}
	for name, d := range map[string]time.Duration{
		"VOTE_WINDOW_TACTICAL":    c.VoteWindowTactical,
		"VOTE_WINDOW_STRATEGIC":   c.VoteWindowStrategic,
		"VOTE_WINDOW_CLAN_BUSTER": c.VoteWindowClanBuster,
		"VOTE_WINDOW_DEFAULT":     c.VoteWindowDefault,
		"RETALIATION_WINDOW":      c.RetaliationWindow,
	} {
		if d <= 0 {
			return fmt.Errorf("%s должен быть > 0", name)
		}
	}
	if c.OtelEnabled && c.OtelEndpoint == "" {
		return fmt.Errorf("OTEL_ENABLED=true требует OTEL_ENDPOINT")
	}
	return nil
}

// Validate проверяет настройки бота.
func (c *Config) Validate() error {
	if err := c.Core.Validate(); err != nil {
		return err
	}
	if c.GameChatID == 0 {
		return fmt.Errorf("GAME_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// AnnounceChat возвращает чат для объявлений.
func (c *Config) AnnounceChat() int64 {
	if c.AnnounceChatID != 0 {
		return c.AnnounceChatID
	}
	return c.GameChatID
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCore читает только общие настройки (для clanctl, без Telegram).
func LoadCore() (*Core, error) {
	var cfg Core
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
