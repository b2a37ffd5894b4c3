package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de marketctl.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Review   ReviewConfig   `yaml:"review"`
	Assessor AssessorConfig `yaml:"assessor"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig son los parámetros de Initialize y la identidad del operador.
type EngineConfig struct {
	// Authority es la dirección con la que el CLI firma operaciones
	// administrativas (resolve, review, pause...).
	Authority       string `yaml:"authority"`
	Treasury        string `yaml:"treasury"`
	CollateralAsset string `yaml:"collateral_asset"`
	TokenDecimals   uint8  `yaml:"token_decimals"`

	PlatformBuyBps  uint64 `yaml:"platform_buy_bps"`
	PlatformSellBps uint64 `yaml:"platform_sell_bps"`
	LPBuyBps        uint64 `yaml:"lp_buy_bps"`
	LPSellBps       uint64 `yaml:"lp_sell_bps"`

	MinLiquidity        uint64 `yaml:"min_liquidity"`
	MinTradingLiquidity uint64 `yaml:"min_trading_liquidity"`
	AllowListEnabled    bool   `yaml:"allow_list_enabled"`
	RequireSignatures   bool   `yaml:"require_signatures"`
	DisputeWindowHours  int    `yaml:"dispute_window_hours"`

	Insurance InsuranceConfig `yaml:"insurance"`
}

// InsuranceConfig configura el pool de seguro.
type InsuranceConfig struct {
	Enabled            bool   `yaml:"enabled"`
	AllocationBps      uint64 `yaml:"allocation_bps"`
	LossThresholdBps   uint64 `yaml:"loss_threshold_bps"`
	MaxCompensationBps uint64 `yaml:"max_compensation_bps"`
}

// ReviewConfig controla el runner de revisión automática de disputas.
type ReviewConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	Workers         int     `yaml:"workers"`        // 0 = NumCPU*2
	MinConfidence   float64 `yaml:"min_confidence"` // por debajo se escala a humano
}

// AssessorConfig apunta al servicio externo de evaluación.
// Con URL vacía se usa el evaluador heurístico local.
type AssessorConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"-"` // solo desde ASSESSOR_TOKEN
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Con path vacío solo se aplican entorno y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// ReviewInterval devuelve el intervalo del runner como time.Duration.
func (c *Config) ReviewInterval() time.Duration {
	return time.Duration(c.Review.IntervalSeconds) * time.Second
}

// DisputeWindow devuelve la ventana de disputa como time.Duration.
func (c *Config) DisputeWindow() time.Duration {
	return time.Duration(c.Engine.DisputeWindowHours) * time.Hour
}

// AssessorTimeout devuelve el timeout HTTP del evaluador.
func (c *Config) AssessorTimeout() time.Duration {
	return time.Duration(c.Assessor.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MARKET_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("MARKET_AUTHORITY"); v != "" {
		cfg.Engine.Authority = v
	}
	if v := os.Getenv("MARKET_TREASURY"); v != "" {
		cfg.Engine.Treasury = v
	}
	if v := os.Getenv("ASSESSOR_URL"); v != "" {
		cfg.Assessor.URL = v
	}
	if v := os.Getenv("ASSESSOR_TOKEN"); v != "" {
		cfg.Assessor.Token = v
	}
	if v := os.Getenv("REVIEW_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REVIEW_MIN_CONFIDENCE %q: %w", v, err)
		}
		cfg.Review.MinConfidence = f
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.TokenDecimals == 0 {
		cfg.Engine.TokenDecimals = 6
	}
	if cfg.Engine.MinLiquidity == 0 {
		cfg.Engine.MinLiquidity = 1_000_000 // 1 unidad con 6 decimales
	}
	if cfg.Engine.DisputeWindowHours <= 0 {
		cfg.Engine.DisputeWindowHours = 48
	}
	if cfg.Review.IntervalSeconds <= 0 {
		cfg.Review.IntervalSeconds = 60
	}
	if cfg.Review.MinConfidence <= 0 {
		cfg.Review.MinConfidence = 0.7
	}
	if cfg.Assessor.TimeoutSeconds <= 0 {
		cfg.Assessor.TimeoutSeconds = 15
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "outcomex.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
