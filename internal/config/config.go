package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	archiveConfig "github.com/iurnickita/primelabel/internal/archive/config"
	artifactConfig "github.com/iurnickita/primelabel/internal/artifact/config"
	handlerConfig "github.com/iurnickita/primelabel/internal/handler/config"
	loggerConfig "github.com/iurnickita/primelabel/internal/logger/config"
	"github.com/iurnickita/primelabel/internal/model"
	serviceConfig "github.com/iurnickita/primelabel/internal/service/config"
	storeConfig "github.com/iurnickita/primelabel/internal/store/config"
	"github.com/iurnickita/primelabel/internal/zpl"
)

const (
	configName = "primelabel"
	envPrefix  = "PRIMELABEL"
)

type Config struct {
	Handler  handlerConfig.Config
	Service  serviceConfig.Config
	Store    storeConfig.Config
	Logger   loggerConfig.Config
	Artifact artifactConfig.Config
	Archive  archiveConfig.Config
}

// GetConfig reads primelabel.toml from . or /etc/primelabel when present,
// then PRIMELABEL_* environment variables on top of defaults.
func GetConfig() (Config, error) {
	return load(".", "/etc/primelabel")
}

func load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Handler: handlerConfig.Config{
			ServerAddr:      v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Service: serviceConfig.Config{
			Marketplace: serviceConfig.Marketplace{
				Offline:       v.GetBool("marketplace.offline"),
				Endpoint:      v.GetString("marketplace.endpoint"),
				TokenEndpoint: v.GetString("marketplace.token_endpoint"),
				ClientID:      v.GetString("marketplace.client_id"),
				ClientSecret:  v.GetString("marketplace.client_secret"),
				RefreshToken:  v.GetString("marketplace.refresh_token"),
				MarketplaceID: v.GetString("marketplace.marketplace_id"),
				Timeout:       v.GetDuration("marketplace.timeout"),
			},
			Retry: serviceConfig.Retry{
				MaxRetries: v.GetInt("retry.max_retries"),
				BaseDelay:  v.GetDuration("retry.base_delay"),
			},
			Label: serviceConfig.Label{
				X: v.GetInt("label.x"),
				Y: v.GetInt("label.y"),
			},
			ShipFrom: model.Address{
				Name:        v.GetString("shipfrom.name"),
				Line1:       v.GetString("shipfrom.line1"),
				Line2:       v.GetString("shipfrom.line2"),
				City:        v.GetString("shipfrom.city"),
				State:       v.GetString("shipfrom.state"),
				PostalCode:  v.GetString("shipfrom.postal_code"),
				CountryCode: v.GetString("shipfrom.country_code"),
				Phone:       v.GetString("shipfrom.phone"),
			},
			BulkConcurrency: v.GetInt("bulk.concurrency"),
			SyncInterval:    v.GetDuration("sync.interval"),
		},
		Store: storeConfig.Config{
			DBDsn: v.GetString("db.dsn"),
		},
		Logger: loggerConfig.Config{
			LogLevel: v.GetString("log.level"),
			Encoding: v.GetString("log.encoding"),
		},
		Artifact: artifactConfig.Config{
			RedisAddr:     v.GetString("artifact.redis_addr"),
			RedisPassword: v.GetString("artifact.redis_password"),
			RedisDB:       v.GetInt("artifact.redis_db"),
			Secret:        v.GetString("artifact.secret"),
			TTL:           v.GetDuration("artifact.ttl"),
		},
		Archive: archiveConfig.Config{
			Bucket:       v.GetString("archive.bucket"),
			Endpoint:     v.GetString("archive.endpoint"),
			Region:       v.GetString("archive.region"),
			AccessKey:    v.GetString("archive.access_key"),
			SecretKey:    v.GetString("archive.secret_key"),
			UsePathStyle: v.GetBool("archive.use_path_style"),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("db.dsn", "")

	v.SetDefault("marketplace.offline", true)
	v.SetDefault("marketplace.endpoint", "https://sellingpartnerapi-na.amazon.com")
	v.SetDefault("marketplace.token_endpoint", "https://api.amazon.com/auth/o2/token")
	v.SetDefault("marketplace.client_id", "")
	v.SetDefault("marketplace.client_secret", "")
	v.SetDefault("marketplace.refresh_token", "")
	v.SetDefault("marketplace.marketplace_id", "ATVPDKIKX0DER")
	v.SetDefault("marketplace.timeout", 30*time.Second)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("label.x", zpl.DefaultX)
	v.SetDefault("label.y", zpl.DefaultY)

	for _, key := range []string{"name", "line1", "line2", "city", "state", "postal_code", "country_code", "phone"} {
		v.SetDefault("shipfrom."+key, "")
	}
	v.SetDefault("bulk.concurrency", 1)
	v.SetDefault("sync.interval", time.Duration(0))

	v.SetDefault("artifact.redis_addr", "")
	v.SetDefault("artifact.redis_password", "")
	v.SetDefault("artifact.redis_db", 0)
	v.SetDefault("artifact.secret", "")
	v.SetDefault("artifact.ttl", time.Hour)

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.use_path_style", false)
}

func validate(cfg Config) error {
	var problems []string
	if cfg.Service.Retry.MaxRetries < 0 {
		problems = append(problems, "retry.max_retries must not be negative")
	}
	if cfg.Service.BulkConcurrency < 1 {
		problems = append(problems, "bulk.concurrency must be at least 1")
	}
	if cfg.Service.Label.X < 0 || cfg.Service.Label.Y < 0 {
		problems = append(problems, "label.x and label.y must not be negative")
	}
	if cfg.Service.Label.X > zpl.MaxCoordinate || cfg.Service.Label.Y > zpl.MaxCoordinate {
		problems = append(problems, fmt.Sprintf("label.x and label.y must not exceed %d", zpl.MaxCoordinate))
	}
	if cfg.Artifact.Secret == "" {
		problems = append(problems, "artifact.secret is required")
	}
	if !cfg.Service.Marketplace.Offline && cfg.Service.Marketplace.RefreshToken == "" {
		problems = append(problems, "marketplace.refresh_token is required in online mode")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
