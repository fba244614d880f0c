package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultServiceName = "vitals-alert"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"

	// Modem
	DefaultSettleDelay     = 200 * time.Millisecond
	DefaultResponseDelay   = 1 * time.Second
	DefaultSMSPollInterval = 5 * time.Second

	// Monitor
	DefaultMonitorDuration = 5 * time.Minute
	DefaultMonitorInterval = 20 * time.Second

	// Roster / CSV
	DefaultDataDir        = "data"
	DefaultPatientsCSV    = "data/patients.csv"
	DefaultResponsibleCSV = "data/responsible_persons.csv"
	DefaultVitalSignsCSV  = "data/vital_signs.csv"

	// Storage
	DefaultRedisNamespace = "vitals"
	DefaultMaxKeepAlerts  = 10_000
	DefaultAlertTTL       = 30 * 24 * time.Hour

	// NSQ
	DefaultNSQTopic = "vitals-alerts"

	// HTTP
	DefaultHTTPAddress = ":8080"
)

// App global settings
type App struct {
	ServiceName string `yaml:"ServiceName"`
}

// Log logger settings
type Log struct {
	Level  string `yaml:"Level"`  // debug|info|warn|error
	Format string `yaml:"Format"` // console|json
}

// Modem GSM modem settings. Line parameters (115200 8N1, 1s read timeout)
// are fixed by the driver; only the port and the pacing are configurable.
type Modem struct {
	PortName        string        `yaml:"PortName"`        // serial device, empty disables transmission
	Required        bool          `yaml:"Required"`        // fail the tool when the port cannot be opened
	SettleDelay     time.Duration `yaml:"SettleDelay"`     // pause after each command write
	ResponseDelay   time.Duration `yaml:"ResponseDelay"`   // pause after the final write before reading
	SMSPollInterval time.Duration `yaml:"SMSPollInterval"` // receive-sms polling period
}

// Monitor loop settings
type Monitor struct {
	Duration time.Duration `yaml:"Duration"`
	Interval time.Duration `yaml:"Interval"`
}

// Roster CSV locations
type Roster struct {
	PatientsCSV    string `yaml:"PatientsCSV"`
	ResponsibleCSV string `yaml:"ResponsibleCSV"`
	VitalSignsCSV  string `yaml:"VitalSignsCSV"`
	LoadFromCSV    bool   `yaml:"LoadFromCSV"`   // read the roster from CSV instead of the built-in one
	LogVitalSigns  bool   `yaml:"LogVitalSigns"` // append every reading to VitalSignsCSV
}

// MySQLConfig MySQL connection settings
type MySQLConfig struct {
	DSN             string        `yaml:"DSN"`
	MaxOpenConns    int           `yaml:"MaxOpenConns"`
	MaxIdleConns    int           `yaml:"MaxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"ConnMaxLifetime"`
}

// Storage optional alert/reading stores
type Storage struct {
	RedisAddr string        `yaml:"RedisAddr"` // empty disables the redis alert store
	Namespace string        `yaml:"Namespace"` // redis key prefix
	MaxKeep   int64         `yaml:"MaxKeep"`   // max alerts kept in redis
	TTL       time.Duration `yaml:"TTL"`       // alert record expiry
	MySQL     MySQLConfig   `yaml:"MySQL"`     // empty DSN disables the reading store
}

// NSQ alert fan-out settings
type NSQ struct {
	ProducerAddr string `yaml:"ProducerAddr"` // empty disables publishing
	Topic        string `yaml:"Topic"`
}

// HTTP status API settings
type HTTP struct {
	Enabled bool   `yaml:"Enabled"`
	Addr    string `yaml:"Addr"`
}

// Config full application configuration
type Config struct {
	App     App     `yaml:"App"`
	Log     Log     `yaml:"Log"`
	Modem   Modem   `yaml:"Modem"`
	Monitor Monitor `yaml:"Monitor"`
	Roster  Roster  `yaml:"Roster"`
	Storage Storage `yaml:"Storage"`
	NSQ     NSQ     `yaml:"NSQ"`
	HTTP    HTTP    `yaml:"HTTP"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var config Config
	config.applyDefaults()
	return config
}

// Load reads a YAML file and applies defaults. A missing file is not an
// error: the tools run on defaults plus flags. Cross-field checks are left
// to Validate, which tools call once command-line overrides are applied.
func Load(configPath string) (Config, error) {
	fileContent, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(fileContent, &config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// MustLoad is Load followed by Validate that panics (for tool start-up).
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	if err := config.Validate(); err != nil {
		panic(err.Error())
	}
	return config
}

// Validate fills defaults and checks cross-field constraints.
func (config *Config) Validate() error {
	config.applyDefaults()

	if err := config.validateModemConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validateMonitorConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

func (config *Config) applyDefaults() {
	config.applyAppDefaults()
	config.applyModemDefaults()
	config.applyMonitorDefaults()
	config.applyRosterDefaults()
	config.applyStorageDefaults()

	if config.NSQ.Topic == "" {
		config.NSQ.Topic = DefaultNSQTopic
	}

	if config.HTTP.Addr == "" {
		config.HTTP.Addr = DefaultHTTPAddress
	}
}

func (config *Config) applyAppDefaults() {
	if config.App.ServiceName == "" {
		config.App.ServiceName = DefaultServiceName
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}

	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
}

func (config *Config) applyModemDefaults() {
	if config.Modem.SettleDelay <= 0 {
		config.Modem.SettleDelay = DefaultSettleDelay
	}

	if config.Modem.ResponseDelay <= 0 {
		config.Modem.ResponseDelay = DefaultResponseDelay
	}

	if config.Modem.SMSPollInterval <= 0 {
		config.Modem.SMSPollInterval = DefaultSMSPollInterval
	}
}

func (config *Config) applyMonitorDefaults() {
	if config.Monitor.Duration <= 0 {
		config.Monitor.Duration = DefaultMonitorDuration
	}

	if config.Monitor.Interval <= 0 {
		config.Monitor.Interval = DefaultMonitorInterval
	}
}

func (config *Config) applyRosterDefaults() {
	if config.Roster.PatientsCSV == "" {
		config.Roster.PatientsCSV = DefaultPatientsCSV
	}

	if config.Roster.ResponsibleCSV == "" {
		config.Roster.ResponsibleCSV = DefaultResponsibleCSV
	}

	if config.Roster.VitalSignsCSV == "" {
		config.Roster.VitalSignsCSV = DefaultVitalSignsCSV
	}
}

func (config *Config) applyStorageDefaults() {
	if config.Storage.Namespace == "" {
		config.Storage.Namespace = DefaultRedisNamespace
	}

	if config.Storage.MaxKeep <= 0 {
		config.Storage.MaxKeep = DefaultMaxKeepAlerts
	}

	if config.Storage.TTL <= 0 {
		config.Storage.TTL = DefaultAlertTTL
	}
}

func (config *Config) validateModemConfig() error {
	if config.Modem.Required && config.Modem.PortName == "" {
		return fmt.Errorf("Modem.Required is set but Modem.PortName is empty")
	}
	return nil
}

func (config *Config) validateMonitorConfig() error {
	if config.Monitor.Interval > config.Monitor.Duration {
		return fmt.Errorf("Monitor.Interval (%s) exceeds Monitor.Duration (%s)",
			config.Monitor.Interval, config.Monitor.Duration)
	}
	return nil
}
