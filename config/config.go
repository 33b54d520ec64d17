package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds litebridge runtime configuration.
type Config struct {
	LogLevel    string `mapstructure:"log-level"`
	LogFilePath string `mapstructure:"log-file"`
	LogPretty   bool   `mapstructure:"log-pretty"`
	Port        int    `mapstructure:"port"`

	DatabasePath         string `mapstructure:"db"`
	SQLiteDriver         string `mapstructure:"sqlite-driver"`
	SQLitePragmasEnabled bool   `mapstructure:"sqlite-pragmas"`
	SQLiteBusyTimeoutMS  int    `mapstructure:"sqlite-busy-timeout-ms"`
	SQLiteJournalMode    string `mapstructure:"sqlite-journal-mode"`
	SQLiteSynchronous    string `mapstructure:"sqlite-synchronous"`
	SQLiteForeignKeys    bool   `mapstructure:"sqlite-foreign-keys"`
	SQLiteMaxOpenConns   int    `mapstructure:"sqlite-max-open-conns"`
	SQLiteMaxIdleConns   int    `mapstructure:"sqlite-max-idle-conns"`
	SQLiteConnMaxIdleSec int    `mapstructure:"sqlite-conn-max-idle-seconds"`
	SQLiteConnMaxLifeSec int    `mapstructure:"sqlite-conn-max-lifetime-seconds"`

	// Tracing
	SlowQueryThresholdMS int  `mapstructure:"slow-query-threshold-ms"`
	TraceAllSQL          bool `mapstructure:"trace-sql"`
	TraceBufferSize      int  `mapstructure:"trace-buffer-size"`
	MaxErrorLogs         int  `mapstructure:"max-error-logs"`
	AssertNoFatal        bool `mapstructure:"assert-no-fatal"`

	CipherKey       string `mapstructure:"cipher-key"`
	PausableSliceMS int    `mapstructure:"pausable-slice-ms"`

	CLIServer string `mapstructure:"server"`
}

// Settings is the global configuration instance. It holds defaults until Load runs.
var Settings = Defaults()

// EnvPrefix prefixes every environment override, e.g. LITEBRIDGE_DB.
const EnvPrefix = "LITEBRIDGE"

var defaults = map[string]any{
	"log-level":                        "INFO",
	"log-file":                         "./litebridge.log",
	"log-pretty":                       true,
	"port":                             7799,
	"db":                               "litebridge.db",
	"sqlite-driver":                    "glebarez",
	"sqlite-pragmas":                   true,
	"sqlite-busy-timeout-ms":           5000,
	"sqlite-journal-mode":              "WAL",
	"sqlite-synchronous":               "NORMAL",
	"sqlite-foreign-keys":              true,
	"sqlite-max-open-conns":            1,
	"sqlite-max-idle-conns":            1,
	"sqlite-conn-max-idle-seconds":     300,
	"sqlite-conn-max-lifetime-seconds": 0,
	"slow-query-threshold-ms":          200,
	"trace-sql":                        false,
	"trace-buffer-size":                256,
	"max-error-logs":                   100,
	"assert-no-fatal":                  false,
	"cipher-key":                       "",
	"pausable-slice-ms":                50,
	"server":                           "http://localhost:7799",
}

var usages = map[string]string{
	"log-level":                        "Log level: DEBUG, INFO, WARN, ERROR",
	"log-file":                         "Log file path (empty disables file logging)",
	"log-pretty":                       "Human readable console logs",
	"port":                             "HTTP server port",
	"db":                               "SQLite database path",
	"sqlite-driver":                    "SQLite driver: glebarez (pure Go) or mattn (cgo)",
	"sqlite-pragmas":                   "Apply SQLite PRAGMAs on connect",
	"sqlite-busy-timeout-ms":           "SQLite busy_timeout in milliseconds",
	"sqlite-journal-mode":              "SQLite journal_mode",
	"sqlite-synchronous":               "SQLite synchronous",
	"sqlite-foreign-keys":              "Enable SQLite foreign_keys",
	"sqlite-max-open-conns":            "SQLite MaxOpenConns",
	"sqlite-max-idle-conns":            "SQLite MaxIdleConns",
	"sqlite-conn-max-idle-seconds":     "SQLite ConnMaxIdleTime in seconds",
	"sqlite-conn-max-lifetime-seconds": "SQLite ConnMaxLifetime in seconds",
	"slow-query-threshold-ms":          "Statements slower than this are logged as warnings",
	"trace-sql":                        "Log every executed statement at debug level",
	"trace-buffer-size":                "Per-subscriber buffer of the trace stream",
	"max-error-logs":                   "Maximum bridged errors kept in memory",
	"assert-no-fatal":                  "Panic when a FATAL database error is traced",
	"cipher-key":                       "Key for encrypted columns (empty disables them)",
	"pausable-slice-ms":                "Time slice of a pausable transaction before it yields",
	"server":                           "Server URL for CLI mode",
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		LogLevel:             defaults["log-level"].(string),
		LogFilePath:          defaults["log-file"].(string),
		LogPretty:            defaults["log-pretty"].(bool),
		Port:                 defaults["port"].(int),
		DatabasePath:         defaults["db"].(string),
		SQLiteDriver:         defaults["sqlite-driver"].(string),
		SQLitePragmasEnabled: defaults["sqlite-pragmas"].(bool),
		SQLiteBusyTimeoutMS:  defaults["sqlite-busy-timeout-ms"].(int),
		SQLiteJournalMode:    defaults["sqlite-journal-mode"].(string),
		SQLiteSynchronous:    defaults["sqlite-synchronous"].(string),
		SQLiteForeignKeys:    defaults["sqlite-foreign-keys"].(bool),
		SQLiteMaxOpenConns:   defaults["sqlite-max-open-conns"].(int),
		SQLiteMaxIdleConns:   defaults["sqlite-max-idle-conns"].(int),
		SQLiteConnMaxIdleSec: defaults["sqlite-conn-max-idle-seconds"].(int),
		SQLiteConnMaxLifeSec: defaults["sqlite-conn-max-lifetime-seconds"].(int),
		SlowQueryThresholdMS: defaults["slow-query-threshold-ms"].(int),
		TraceAllSQL:          defaults["trace-sql"].(bool),
		TraceBufferSize:      defaults["trace-buffer-size"].(int),
		MaxErrorLogs:         defaults["max-error-logs"].(int),
		AssertNoFatal:        defaults["assert-no-fatal"].(bool),
		CipherKey:            defaults["cipher-key"].(string),
		PausableSliceMS:      defaults["pausable-slice-ms"].(int),
		CLIServer:            defaults["server"].(string),
	}
}

// BindFlags registers one flag per setting on fs and binds it to v.
// Precedence is flag > environment > config file > default.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := Defaults()
	fs.String("log-level", d.LogLevel, usages["log-level"])
	fs.String("log-file", d.LogFilePath, usages["log-file"])
	fs.Bool("log-pretty", d.LogPretty, usages["log-pretty"])
	fs.Int("port", d.Port, usages["port"])
	fs.String("db", d.DatabasePath, usages["db"])
	fs.String("sqlite-driver", d.SQLiteDriver, usages["sqlite-driver"])
	fs.Bool("sqlite-pragmas", d.SQLitePragmasEnabled, usages["sqlite-pragmas"])
	fs.Int("sqlite-busy-timeout-ms", d.SQLiteBusyTimeoutMS, usages["sqlite-busy-timeout-ms"])
	fs.String("sqlite-journal-mode", d.SQLiteJournalMode, usages["sqlite-journal-mode"])
	fs.String("sqlite-synchronous", d.SQLiteSynchronous, usages["sqlite-synchronous"])
	fs.Bool("sqlite-foreign-keys", d.SQLiteForeignKeys, usages["sqlite-foreign-keys"])
	fs.Int("sqlite-max-open-conns", d.SQLiteMaxOpenConns, usages["sqlite-max-open-conns"])
	fs.Int("sqlite-max-idle-conns", d.SQLiteMaxIdleConns, usages["sqlite-max-idle-conns"])
	fs.Int("sqlite-conn-max-idle-seconds", d.SQLiteConnMaxIdleSec, usages["sqlite-conn-max-idle-seconds"])
	fs.Int("sqlite-conn-max-lifetime-seconds", d.SQLiteConnMaxLifeSec, usages["sqlite-conn-max-lifetime-seconds"])
	fs.Int("slow-query-threshold-ms", d.SlowQueryThresholdMS, usages["slow-query-threshold-ms"])
	fs.Bool("trace-sql", d.TraceAllSQL, usages["trace-sql"])
	fs.Int("trace-buffer-size", d.TraceBufferSize, usages["trace-buffer-size"])
	fs.Int("max-error-logs", d.MaxErrorLogs, usages["max-error-logs"])
	fs.Bool("assert-no-fatal", d.AssertNoFatal, usages["assert-no-fatal"])
	fs.String("cipher-key", d.CipherKey, usages["cipher-key"])
	fs.Int("pausable-slice-ms", d.PausableSliceMS, usages["pausable-slice-ms"])
	fs.String("server", d.CLIServer, usages["server"])

	return v.BindPFlags(fs)
}

// Load reads configuration into a new Config. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize trims and upper-cases enumerated values and clamps limits.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	c.SQLiteDriver = strings.ToLower(strings.TrimSpace(c.SQLiteDriver))
	c.DatabasePath = strings.TrimSpace(c.DatabasePath)
	if c.TraceBufferSize < 1 {
		c.TraceBufferSize = 1
	}
	if c.MaxErrorLogs < 1 {
		c.MaxErrorLogs = 1
	}
	if c.PausableSliceMS < 1 {
		c.PausableSliceMS = 1
	}
}
