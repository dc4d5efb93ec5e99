package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vstore/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "vstore.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "vstore.yaml"

	// DefaultPort is the default devtools server port.
	DefaultPort = 4100

	// DefaultHost is the default devtools server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "vstore"

	// DefaultMetricsPath is where metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/vstore"
)

// Encodings accepted for devtools stream frames.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// searchOrder lists the file names Load looks for, in order.
var searchOrder = []string{ConfigFileName, YAMLConfigFileName, "vstore.yml"}

// Config represents the complete vstore configuration.
type Config struct {
	// Name is the store name used in logs and metric labels.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Host contains render loop settings.
	Host HostConfig `json:"host,omitempty" yaml:"host,omitempty"`

	// Devtools contains devtools server settings.
	Devtools DevtoolsConfig `json:"devtools,omitempty" yaml:"devtools,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	configPath string
}

// HostConfig contains render loop settings.
type HostConfig struct {
	// QueueSize is the dispatch queue capacity.
	QueueSize int `json:"queueSize,omitempty" yaml:"queueSize,omitempty"`

	// ConsistencyReads is how often a snapshot is read per render pass.
	ConsistencyReads int `json:"consistencyReads,omitempty" yaml:"consistencyReads,omitempty"`
}

// DevtoolsConfig contains devtools server settings.
type DevtoolsConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Encoding is the stream frame encoding ("json" or "cbor").
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// AllowOrigins lists origins allowed to open the stream.
	// Empty means same-origin only; "*" allows any origin.
	AllowOrigins []string `json:"allowOrigins,omitempty" yaml:"allowOrigins,omitempty"`

	// ReadOnly rejects state patches.
	ReadOnly bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers store metrics and serves them.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Path is the URL path metrics are served on.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled records a span per update cycle.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// TracerName names the tracer obtained from the global provider.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// New returns a Config holding the defaults that vstore init writes.
func New() *Config {
	return &Config{
		Name: "store",
		Devtools: DevtoolsConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Encoding: EncodingJSON,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vstore.json, then vstore.yaml, then vstore.yml.
func Load(dir string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		return nil, errors.New("E030").
			WithDetail("No vstore.json or vstore.yaml found in " + dir).
			WithSuggestion("Run 'vstore init' to write a default configuration")
	}
	return LoadFile(path)
}

// Find returns the config file Load would read in dir, or "".
func Find(dir string) string {
	for _, name := range searchOrder {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Exists reports whether Load would find a file in dir.
func Exists(dir string) bool {
	return Find(dir) != ""
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension: .yaml and .yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E030").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E030").Wrap(err)
	}

	cfg := New()
	unmarshal, format := json.Unmarshal, "JSON"
	if isYAML(path) {
		unmarshal, format = yaml.Unmarshal, "YAML"
	}
	if err := unmarshal(data, cfg); err != nil {
		return nil, errors.New("E030").
			WithDetailf("Failed to parse %s: %v", filepath.Base(path), err).
			WithSuggestion("Check that the file is valid " + format)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration to path, as YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E030").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E030").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path is the file c was loaded from or last saved to, or "" for a
// Config built in memory.
func (c *Config) Path() string {
	return c.configPath
}

// Dir is the directory of Path.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills fields a config file left empty.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "store"
	}
	if c.Devtools.Host == "" {
		c.Devtools.Host = DefaultHost
	}
	if c.Devtools.Port == 0 {
		c.Devtools.Port = DefaultPort
	}
	if c.Devtools.Encoding == "" {
		c.Devtools.Encoding = EncodingJSON
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate returns an E031 error describing the first invalid field.
func (c *Config) Validate() error {
	if c.Devtools.Port < 0 || c.Devtools.Port > 65535 {
		return errors.New("E031").
			WithDetail("devtools.port must be between 0 and 65535")
	}

	switch c.Devtools.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		return errors.New("E031").
			WithDetailf("devtools.encoding %q is not supported", c.Devtools.Encoding).
			WithSuggestion(`Use "json" or "cbor"`)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("E031").
			WithDetailf("metrics.path %q must start with /", c.Metrics.Path)
	}

	if c.Host.QueueSize < 0 {
		return errors.New("E031").WithDetail("host.queueSize must not be negative")
	}
	if c.Host.ConsistencyReads < 0 {
		return errors.New("E031").WithDetail("host.consistencyReads must not be negative")
	}

	if _, err := c.LogLevel(); err != nil {
		return errors.New("E031").
			WithDetailf("log.level %q is not a level", c.Log.Level).
			WithSuggestion("Use debug, info, warn or error")
	}

	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// DevtoolsAddress returns the listen address for the devtools server.
func (c *Config) DevtoolsAddress() string {
	return net.JoinHostPort(c.Devtools.Host, strconv.Itoa(c.Devtools.Port))
}

// DevtoolsURL returns the base URL of the devtools server.
func (c *Config) DevtoolsURL() string {
	return "http://" + c.DevtoolsAddress()
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
