package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	VWorld  VWorldConfig  `yaml:"vworld" mapstructure:"vworld"`
	UAS     UASConfig     `yaml:"uas" mapstructure:"uas"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Tiles   TilesConfig   `yaml:"tiles" mapstructure:"tiles"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Overlay OverlayConfig `yaml:"overlay" mapstructure:"overlay"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// VWorldConfig holds VWorld open API settings.
type VWorldConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Domain      string  `yaml:"domain" mapstructure:"domain"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	WMTSURL     string  `yaml:"wmts_url" mapstructure:"wmts_url"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// UASConfig locates and describes the UAS flight-zone dataset.
type UASConfig struct {
	Source    string        `yaml:"source" mapstructure:"source"`
	Encoding  string        `yaml:"encoding" mapstructure:"encoding"`
	Delimiter string        `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet     string        `yaml:"sheet" mapstructure:"sheet"`
	Columns   ColumnAliases `yaml:"columns" mapstructure:"columns"`
}

// ColumnAliases lists accepted header names for each dataset field.
type ColumnAliases struct {
	Code       []string `yaml:"code" mapstructure:"code"`
	Location   []string `yaml:"location" mapstructure:"location"`
	Horizontal []string `yaml:"horizontal" mapstructure:"horizontal"`
	Vertical   []string `yaml:"vertical" mapstructure:"vertical"`
	Note       []string `yaml:"note" mapstructure:"note"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// TilesConfig configures the basemap tile cache.
type TilesConfig struct {
	CacheEntries    int `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// MapConfig is the initial map view handed to clients.
type MapConfig struct {
	CenterLat float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon float64 `yaml:"center_lon" mapstructure:"center_lon"`
	Zoom      int     `yaml:"zoom" mapstructure:"zoom"`
}

// OverlayConfig overrides per-kind overlay styling.
type OverlayConfig struct {
	Styles         map[string]StyleConfig `yaml:"styles" mapstructure:"styles"`
	CircleSegments int                    `yaml:"circle_segments" mapstructure:"circle_segments"`
}

// StyleConfig is a partial overlay style; zero values keep the default.
type StyleConfig struct {
	Color       string  `yaml:"color" mapstructure:"color"`
	Weight      float64 `yaml:"weight" mapstructure:"weight"`
	FillOpacity float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AIRZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("vworld.key", "")
	v.SetDefault("vworld.domain", "localhost")
	v.SetDefault("vworld.base_url", "https://api.vworld.kr")
	v.SetDefault("vworld.wmts_url", "https://api.vworld.kr/req/wmts/1.0.0")
	v.SetDefault("vworld.page_size", 1000)
	v.SetDefault("vworld.rate_limit", 5)
	v.SetDefault("vworld.timeout_secs", 30)
	v.SetDefault("vworld.max_retries", 3)
	v.SetDefault("uas.source", "")
	v.SetDefault("uas.encoding", "auto")
	v.SetDefault("uas.delimiter", ",")
	v.SetDefault("uas.sheet", "")
	v.SetDefault("uas.columns.code", []string{"code", "구역코드", "식별코드", "코드"})
	v.SetDefault("uas.columns.location", []string{"location", "name", "구역명", "위치", "명칭"})
	v.SetDefault("uas.columns.horizontal", []string{"horizontal", "horizontal_extent", "수평범위", "수평 범위"})
	v.SetDefault("uas.columns.vertical", []string{"vertical", "vertical_extent", "altitude", "수직범위", "수직 범위", "고도"})
	v.SetDefault("uas.columns.note", []string{"note", "비고"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "airzone.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("tiles.cache_entries", 2048)
	v.SetDefault("tiles.cache_ttl_minutes", 60)
	v.SetDefault("map.center_lat", 37.5665)
	v.SetDefault("map.center_lon", 126.978)
	v.SetDefault("map.zoom", 11)
	v.SetDefault("overlay.circle_segments", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "parse",
// "uas", "fetch", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "parse":
	case "uas":
		if c.UAS.Source == "" {
			errs = append(errs, "uas.source is required")
		}
		errs = append(errs, c.validateUAS()...)
	case "fetch":
		errs = append(errs, c.validateVWorld()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Tiles.CacheEntries < 0 {
			errs = append(errs, "tiles.cache_entries must be >= 0")
		}
		errs = append(errs, c.validateVWorld()...)
		errs = append(errs, c.validateUAS()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateVWorld() []string {
	var errs []string
	if c.VWorld.Key == "" {
		errs = append(errs, "vworld.key is required")
	}
	if c.VWorld.PageSize < 1 || c.VWorld.PageSize > 1000 {
		errs = append(errs, "vworld.page_size must be between 1 and 1000")
	}
	return errs
}

func (c *Config) validateUAS() []string {
	switch strings.ToLower(c.UAS.Encoding) {
	case "", "auto", "utf-8", "utf8", "euc-kr", "cp949":
		return nil
	default:
		return []string{"uas.encoding must be auto, utf-8 or euc-kr"}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
