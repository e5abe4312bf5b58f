package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// DefaultDatabasePath is where the ledger lives unless configured otherwise.
const DefaultDatabasePath = "~/.local/share/villar/villar.db"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("ledger.chance_merchant", ledger.DefaultChanceMerchant)
	v.SetDefault("ledger.refund_penalty", "0.04")
	v.SetDefault("ledger.caps.large", 2)
	v.SetDefault("ledger.caps.medium", 4)
	v.SetDefault("ledger.caps.small", 8)
	v.SetDefault("storage.retry.max_attempts", common.DefaultRetryOptions().MaxAttempts)
}

// LoadLedgerConfig reads the simulation rules.
func LoadLedgerConfig(v *viper.Viper) (ledger.Config, error) {
	cfg := ledger.DefaultConfig()

	if s := v.GetString("ledger.chance_merchant"); s != "" {
		cfg.ChanceMerchant = s
	}

	if s := v.GetString("ledger.refund_penalty"); s != "" {
		penalty, err := decimal.NewFromString(s)
		if err != nil {
			return cfg, fmt.Errorf("%w: ledger.refund_penalty: %w", common.ErrInvalidConfig, err)
		}
		if penalty.IsNegative() || penalty.GreaterThan(decimal.NewFromInt(1)) {
			return cfg, fmt.Errorf("%w: ledger.refund_penalty must be between 0 and 1", common.ErrInvalidConfig)
		}
		cfg.RefundPenalty = penalty
	}

	caps := model.Quota{
		model.SizeLarge:  v.GetInt("ledger.caps.large"),
		model.SizeMedium: v.GetInt("ledger.caps.medium"),
		model.SizeSmall:  v.GetInt("ledger.caps.small"),
	}
	for class, n := range caps {
		if n <= 0 {
			return cfg, fmt.Errorf("%w: ledger cap for %s must be positive, got %d", common.ErrInvalidConfig, class, n)
		}
	}
	cfg.Caps = caps

	return cfg, nil
}

// LoadAdminKey returns the operator key. It follows this precedence:
// 1. Viper configuration (config file or VILLAR_SESSION_ADMIN_KEY)
// 2. The VILLAR_ADMIN_KEY environment variable
func LoadAdminKey(v *viper.Viper) (string, error) {
	if key := v.GetString("session.admin_key"); key != "" {
		return key, nil
	}
	if key := os.Getenv("VILLAR_ADMIN_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: session.admin_key", common.ErrMissingConfig)
}

// StorageConfig locates the database and tunes its retry policy.
type StorageConfig struct {
	Path  string
	Retry service.RetryOptions
}

// LoadStorageConfig reads the database location. Relative paths stay
// relative to the working directory.
func LoadStorageConfig(v *viper.Viper) (StorageConfig, error) {
	path := ExpandPath(v.GetString("database.path"))
	if path == "" {
		return StorageConfig{}, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}

	retry := common.DefaultRetryOptions()
	if n := v.GetInt("storage.retry.max_attempts"); n > 0 {
		retry.MaxAttempts = n
	}
	return StorageConfig{Path: path, Retry: retry}, nil
}
