package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stablearb/pkg/utils"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Ledger   LedgerConfig
	Bot      BotConfig
	Jobs     JobsConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// bcrypt-хеш API-токена; пустой хеш отключает аутентификацию
	APITokenHash string
}

// LedgerConfig - настройки подключения к леджеру
type LedgerConfig struct {
	// WebSocket URL полного узла (light-протокол)
	NodeURL string

	// HTTP JSON-RPC URL кошелькового демона, который подписывает
	// и отправляет наши транзакции
	WalletURL string

	// Интервал ping для поддержания WS соединения
	PingInterval time.Duration

	// Задержки переподключения (экспоненциальный backoff)
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// Retry для чтений из узла
	MaxRetries   int
	RetryBackoff time.Duration

	// Ограничение частоты отправки транзакций через кошелек
	SubmitRatePerSec float64
}

// BotConfig - настройки арбитражных движков
type BotConfig struct {
	// Адрес оператора: он должен быть manager каждого arb-контракта
	OperatorAddress string

	// Адреса обслуживаемых arb-контрактов (через запятую в env)
	ArbAddresses []string

	// Адрес bank-контракта для вывода накопленных балансов
	BankAddress string

	// Допустимая потеря на округление при проверке прибыльности
	Tolerance int64
}

// JobsConfig - расписание плановых задач
type JobsConfig struct {
	ReconcileInterval time.Duration // сверка балансов пула
	CommitInterval    time.Duration // фиксация неоспоренных force-close
	UnlockInterval    time.Duration // разблокировка залогов
	WithdrawInterval  time.Duration // вывод из bank-контракта
	StatusInterval    time.Duration // рассылка снапшотов по WebSocket
	CleanupInterval   time.Duration // очистка журналов
	LogRetention      time.Duration // срок хранения журналов
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "stablearb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APITokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Ledger: LedgerConfig{
			NodeURL:           getEnv("NODE_WS_URL", ""),
			WalletURL:         getEnv("WALLET_RPC_URL", ""),
			PingInterval:      getEnvAsDuration("NODE_PING_INTERVAL", 15*time.Second),
			ReconnectDelay:    getEnvAsDuration("NODE_RECONNECT_DELAY", 1*time.Second),
			MaxReconnectDelay: getEnvAsDuration("NODE_MAX_RECONNECT_DELAY", 30*time.Second),
			MaxRetries:        getEnvAsInt("NODE_MAX_RETRIES", 4),
			RetryBackoff:      getEnvAsDuration("NODE_RETRY_BACKOFF", 500*time.Millisecond),
			SubmitRatePerSec:  getEnvAsFloat("WALLET_RATE_PER_SEC", 1.0),
		},
		Bot: BotConfig{
			OperatorAddress: getEnv("OPERATOR_ADDRESS", ""),
			ArbAddresses:    getEnvAsList("ARB_ADDRESSES"),
			BankAddress:     getEnv("BANK_ADDRESS", ""),
			Tolerance:       int64(getEnvAsInt("PROFIT_TOLERANCE", 2)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 1*time.Minute),
			CommitInterval:    getEnvAsDuration("COMMIT_INTERVAL", 1*time.Hour),
			UnlockInterval:    getEnvAsDuration("UNLOCK_INTERVAL", 24*time.Hour),
			WithdrawInterval:  getEnvAsDuration("WITHDRAW_INTERVAL", 24*time.Hour),
			StatusInterval:    getEnvAsDuration("STATUS_INTERVAL", 5*time.Second),
			CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 24*time.Hour),
			LogRetention:      getEnvAsDuration("LOG_RETENTION", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateLedger(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateLedger проверяет параметры подключения к леджеру
func (c *Config) validateLedger() error {
	if c.Ledger.NodeURL == "" {
		return fmt.Errorf("NODE_WS_URL is required")
	}

	if !strings.HasPrefix(c.Ledger.NodeURL, "ws://") && !strings.HasPrefix(c.Ledger.NodeURL, "wss://") {
		return fmt.Errorf("NODE_WS_URL must be a ws:// or wss:// URL, got %q", c.Ledger.NodeURL)
	}

	if c.Ledger.WalletURL == "" {
		return fmt.Errorf("WALLET_RPC_URL is required")
	}

	if c.Bot.OperatorAddress == "" {
		return fmt.Errorf("OPERATOR_ADDRESS is required")
	}

	if err := utils.ValidateAddress(c.Bot.OperatorAddress); err != nil {
		return fmt.Errorf("OPERATOR_ADDRESS: %w", err)
	}

	if len(c.Bot.ArbAddresses) == 0 {
		return fmt.Errorf("ARB_ADDRESSES is required (comma-separated list)")
	}

	for _, addr := range c.Bot.ArbAddresses {
		if err := utils.ValidateAddress(addr); err != nil {
			return fmt.Errorf("ARB_ADDRESSES: %w", err)
		}
	}

	if c.Bot.BankAddress != "" {
		if err := utils.ValidateAddress(c.Bot.BankAddress); err != nil {
			return fmt.Errorf("BANK_ADDRESS: %w", err)
		}
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("NODE_MAX_RETRIES cannot be negative, got %d", c.Ledger.MaxRetries)
	}

	if c.Ledger.MaxRetries > 10 {
		return fmt.Errorf("NODE_MAX_RETRIES should not exceed 10, got %d", c.Ledger.MaxRetries)
	}

	if c.Ledger.PingInterval <= 0 {
		return fmt.Errorf("NODE_PING_INTERVAL must be positive, got %v", c.Ledger.PingInterval)
	}

	if c.Ledger.SubmitRatePerSec <= 0 {
		return fmt.Errorf("WALLET_RATE_PER_SEC must be positive, got %v", c.Ledger.SubmitRatePerSec)
	}

	if c.Bot.Tolerance < 0 {
		return fmt.Errorf("PROFIT_TOLERANCE cannot be negative, got %d", c.Bot.Tolerance)
	}

	if c.Jobs.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got %v", c.Jobs.ReconcileInterval)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
