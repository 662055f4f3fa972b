package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=banking_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultNotificationStream = "ledger.notifications"
const defaultBaseAccountNumber = 1000000
const defaultLoanLimit = 3

type Config struct {
	Storage               string `yaml:"storage"`
	DatabaseDSN           string `yaml:"database_dsn"`
	MigrationsDir         string `yaml:"migrations_dir"`
	SQLitePath            string `yaml:"sqlite_path"`
	RedisAddr             string `yaml:"redis_addr"`
	NotificationStream    string `yaml:"notification_stream"`
	BaseAccountNumber     int64  `yaml:"base_account_number"`
	LoanLimit             int    `yaml:"loan_limit"`
	LoanCreditsOnApproval bool   `yaml:"loan_credits_on_approval"`
}

// Load builds the configuration from defaults, an optional YAML file
// named by LEDGER_CONFIG_FILE, and finally environment variables, in
// that order of precedence.
func Load() (Config, error) {
	cfg := Config{
		Storage:            StoragePostgres,
		DatabaseDSN:        defaultConnectionString,
		MigrationsDir:      filepath.Join("migrations"),
		SQLitePath:         "./ledger.db",
		NotificationStream: defaultNotificationStream,
		BaseAccountNumber:  defaultBaseAccountNumber,
		LoanLimit:          defaultLoanLimit,
	}

	if path := strings.TrimSpace(os.Getenv("LEDGER_CONFIG_FILE")); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, loaded)
	}

	if v := strings.TrimSpace(os.Getenv("STORAGE")); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")); v != "" {
		cfg.MigrationsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFICATION_STREAM")); v != "" {
		cfg.NotificationStream = v
	}
	if v := strings.TrimSpace(os.Getenv("BASE_ACCOUNT_NUMBER")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse BASE_ACCOUNT_NUMBER: %w", err)
		}
		cfg.BaseAccountNumber = parsed
	}
	if v := strings.TrimSpace(os.Getenv("LOAN_LIMIT")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOAN_LIMIT: %w", err)
		}
		cfg.LoanLimit = parsed
	}
	if v := strings.TrimSpace(os.Getenv("LOAN_CREDITS_ON_APPROVAL")); v != "" {
		cfg.LoanCreditsOnApproval = v == "1" || strings.EqualFold(v, "true")
	}

	cfg.DatabaseDSN = normalizeConnectionString(cfg.DatabaseDSN)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("storage must be one of %s, %s, %s", StoragePostgres, StorageSQLite, StorageMemory)
	}
	if c.Storage == StorageSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("sqlite_path is required for sqlite storage")
	}
	if c.BaseAccountNumber <= 0 {
		return fmt.Errorf("base_account_number must be positive")
	}
	if c.LoanLimit <= 0 {
		return fmt.Errorf("loan_limit must be positive")
	}
	return nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

func merge(base, override Config) Config {
	if strings.TrimSpace(override.Storage) != "" {
		base.Storage = strings.ToLower(strings.TrimSpace(override.Storage))
	}
	if strings.TrimSpace(override.DatabaseDSN) != "" {
		base.DatabaseDSN = override.DatabaseDSN
	}
	if strings.TrimSpace(override.MigrationsDir) != "" {
		base.MigrationsDir = override.MigrationsDir
	}
	if strings.TrimSpace(override.SQLitePath) != "" {
		base.SQLitePath = override.SQLitePath
	}
	if strings.TrimSpace(override.RedisAddr) != "" {
		base.RedisAddr = override.RedisAddr
	}
	if strings.TrimSpace(override.NotificationStream) != "" {
		base.NotificationStream = override.NotificationStream
	}
	if override.BaseAccountNumber > 0 {
		base.BaseAccountNumber = override.BaseAccountNumber
	}
	if override.LoanLimit > 0 {
		base.LoanLimit = override.LoanLimit
	}
	if override.LoanCreditsOnApproval {
		base.LoanCreditsOnApproval = true
	}
	return base
}

// normalizeConnectionString accepts either a libpq-style DSN or a
// semicolon key=value connection string and returns a libpq DSN.
func normalizeConnectionString(raw string) string {
	if !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
