package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trail-booking", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "ECO", cfg.Booking.ProtocolPrefix)
	assert.Equal(t, 5, cfg.Booking.ProtocolAttempts)
	assert.Equal(t, "08:00", cfg.Booking.DefaultTime)
	assert.Equal(t, 10*time.Second, cfg.Booking.RequestTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "booking-audit", cfg.Relay.Topic)
	assert.Equal(t, 15*time.Second, cfg.OTel.MetricInterval)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("BOOKING_PROTOCOL_PREFIX", " trl ")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RELAY_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "TRL", cfg.Booking.ProtocolPrefix)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Relay.BatchSize)
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "APP_NAME=trail-booking-test\nBOOKING_TIMEZONE=UTC\nBOOKING_DEFAULT_TIME=07:30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "trail-booking-test", cfg.App.Name)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, "07:30", cfg.Booking.DefaultTime)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:           AppConfig{Name: "trail-booking", Environment: "development"},
			Server:        ServerConfig{Port: 8080},
			JWT:           JWTConfig{Secret: "secret"},
			StorageDriver: StoragePostgres,
			Booking: BookingConfig{
				ProtocolPrefix:   "ECO",
				ProtocolAttempts: 5,
				Timezone:         "UTC",
				DefaultTime:      "08:00",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, true},
		{"unknown storage driver", func(c *Config) { c.StorageDriver = "mysql" }, true},
		{"empty prefix", func(c *Config) { c.Booking.ProtocolPrefix = "" }, true},
		{"zero attempts", func(c *Config) { c.Booking.ProtocolAttempts = 0 }, true},
		{"unknown timezone", func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, true},
		{"bad default time", func(c *Config) { c.Booking.DefaultTime = "8am" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKafka(t *testing.T) {
	cfg := &Config{Relay: RelayConfig{Topic: "booking-audit"}}
	assert.Error(t, cfg.ValidateKafka())

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.ValidateKafka())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "trail_booking", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=trail_booking sslmode=disable", d.DSN())
}
