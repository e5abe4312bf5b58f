package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

func newViper(t *testing.T, values map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("VILLAR_TEST_DIR", "/srv/villar")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/villar.db", filepath.Join(home, "villar.db")},
		{"$VILLAR_TEST_DIR/villar.db", "/srv/villar/villar.db"},
		{"/abs/path.db", "/abs/path.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "town.yaml")
	require.NoError(t, os.WriteFile(file, []byte("professions: []\n"), 0600))
	t.Setenv("VILLAR_CATALOG_DIR", dir)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain file", file, file, nil},
		{"env var and padding", "  $VILLAR_CATALOG_DIR/town.yaml ", file, nil},
		{"uncleaned path", dir + "/./town.yaml", file, nil},
		{"empty", "   ", "", common.ErrInvalidInput},
		{"directory", dir, "", common.ErrInvalidInput},
		{"missing", filepath.Join(dir, "none.yaml"), "", os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFile(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadLedgerConfig_Defaults(t *testing.T) {
	cfg, err := LoadLedgerConfig(newViper(t, nil))
	require.NoError(t, err)

	def := ledger.DefaultConfig()
	assert.Equal(t, def.Caps, cfg.Caps)
	assert.True(t, def.RefundPenalty.Equal(cfg.RefundPenalty))
	assert.Equal(t, ledger.DefaultChanceMerchant, cfg.ChanceMerchant)
}

func TestLoadLedgerConfig_Overrides(t *testing.T) {
	cfg, err := LoadLedgerConfig(newViper(t, map[string]any{
		"ledger.chance_merchant": "RUEDA DE LA FORTUNA",
		"ledger.refund_penalty":  "0.1",
		"ledger.caps.large":      1,
	}))
	require.NoError(t, err)
	assert.Equal(t, "RUEDA DE LA FORTUNA", cfg.ChanceMerchant)
	assert.Equal(t, "0.1", cfg.RefundPenalty.String())
	assert.Equal(t, model.Quota{model.SizeLarge: 1, model.SizeMedium: 4, model.SizeSmall: 8}, cfg.Caps)
}

func TestLoadLedgerConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"penalty not a number", map[string]any{"ledger.refund_penalty": "mucho"}},
		{"penalty above one", map[string]any{"ledger.refund_penalty": "1.5"}},
		{"negative penalty", map[string]any{"ledger.refund_penalty": "-0.1"}},
		{"zero cap", map[string]any{"ledger.caps.small": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLedgerConfig(newViper(t, tt.values))
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadAdminKey(t *testing.T) {
	t.Setenv("VILLAR_ADMIN_KEY", "")
	_, err := LoadAdminKey(newViper(t, nil))
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	t.Setenv("VILLAR_ADMIN_KEY", "from-env")
	key, err := LoadAdminKey(newViper(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = LoadAdminKey(newViper(t, map[string]any{"session.admin_key": "from-config"}))
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)
}

func TestLoadStorageConfig(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := LoadStorageConfig(newViper(t, nil))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/share/villar/villar.db"), cfg.Path)
	assert.Equal(t, common.DefaultRetryOptions().MaxAttempts, cfg.Retry.MaxAttempts)

	cfg, err = LoadStorageConfig(newViper(t, map[string]any{
		"database.path":              ":memory:",
		"storage.retry.max_attempts": 7,
	}))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Path)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)

	_, err = LoadStorageConfig(newViper(t, map[string]any{"database.path": ""}))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
