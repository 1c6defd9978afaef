package common

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDefaults(overrides map[string]any) *Config {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for k, val := range overrides {
		v.Set(k, val)
	}
	return fromViper(v)
}

func TestConfigDefaults(t *testing.T) {
	cfg := withDefaults(nil)

	assert.Equal(t, "cli", cfg.OCR.Engine)
	assert.Equal(t, 400, cfg.OCR.DPI)
	assert.Equal(t, "eng", cfg.OCR.TesseractLang)
	assert.InDelta(t, 0.22, cfg.OCR.StripFraction, 1e-9)
	assert.Equal(t, 60, cfg.Import.RemarksMaxDistance)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxConnLifetime)

	require.NoError(t, cfg.Validate(false))
}

func TestConfigOverrides(t *testing.T) {
	cfg := withDefaults(map[string]any{
		"DB_URL":               "postgres://u:p@localhost:5432/caselaw",
		"DB_DIAL_TIMEOUT":      "5s",
		"OCR_ENGINE":           "api",
		"OCR_DPI":              "300",
		"REMARKS_MAX_DISTANCE": "80",
		"INBOX_DIR":            "/srv/inbox",
		"LOG_FORMAT":           "json",
	})

	assert.Equal(t, "postgres://u:p@localhost:5432/caselaw", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.DialTimeout)
	assert.Equal(t, "api", cfg.OCR.Engine)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 80, cfg.Import.RemarksMaxDistance)
	assert.Equal(t, "/srv/inbox", cfg.Server.InboxDir)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate(true))
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]any
		requireDB bool
	}{
		{"missing dsn", nil, true},
		{"unknown engine", map[string]any{"OCR_ENGINE": "cloud"}, false},
		{"zero dpi", map[string]any{"OCR_DPI": 0}, false},
		{"strip fraction out of range", map[string]any{"OCR_STRIP_FRACTION": 1.5}, false},
		{"empty address", map[string]any{"HTTP_ADDR": ""}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := withDefaults(tc.overrides).Validate(tc.requireDB)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
		})
	}
}
