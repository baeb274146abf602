// Package config resolves the settings of the statexfer binaries from
// defaults, an optional YAML file, STATEXFER_* environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvPrefix = "STATEXFER_"

type Config struct {
	LogLevel string `yaml:"log_level"`
	// Schema is the path of the YAML or JSON schema set.
	Schema string `yaml:"schema"`

	APIPort int `yaml:"api_port"`
	TCPPort int `yaml:"tcp_port"`
	// WatchDir enables the directory collector when set.
	WatchDir     string `yaml:"watch_dir"`
	WatchPattern string `yaml:"watch_pattern"`
	Recording    bool   `yaml:"recording"`

	// DatabaseURL enables capture archiving when set.
	DatabaseURL string `yaml:"database_url"`
	Migrations  string `yaml:"migrations"`
	// CRCLogDir is where per-frame checksum logs are read from and written to.
	CRCLogDir string `yaml:"crc_log_dir"`

	StreamInterval  time.Duration `yaml:"stream_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxSnapshotSize int64         `yaml:"max_snapshot_size"`
}

func Default() *Config {
	return &Config{
		LogLevel:        "info",
		Schema:          "snapshot_schema.yaml",
		APIPort:         8080,
		TCPPort:         8888,
		WatchPattern:    "*",
		Recording:       true,
		Migrations:      "./migrations",
		CRCLogDir:       "crc_logs",
		StreamInterval:  100 * time.Millisecond,
		ShutdownTimeout: 10 * time.Second,
		MaxSnapshotSize: 256 << 20,
	}
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %v", err)
	}
	defer f.Close()
	return c.Load(f)
}

func (c *Config) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode config: %v", err)
	}
	return nil
}

// ApplyEnv overlays STATEXFER_* variables onto c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, v := range c.vars() {
		value, ok := lookup(EnvPrefix + v.env)
		if !ok {
			continue
		}
		if err := v.value.Set(value); err != nil {
			return fmt.Errorf("invalid %s%s: %v", EnvPrefix, v.env, err)
		}
	}
	return nil
}

// RegisterFlags binds every setting to a flag whose default is the current
// value of c.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	for _, v := range c.vars() {
		fs.Var(v.value, v.flag, v.usage)
	}
}

// Parse resolves the configuration of a binary from its arguments and the
// environment. A -config flag names the YAML file.
func Parse(name string, args []string, lookup func(string) (string, bool)) (*Config, error) {
	// first pass only finds the config file
	scratch := Default()
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	path := pre.String("config", "", "")
	scratch.RegisterFlags(pre)
	if err := pre.Parse(args); err != nil {
		return nil, err
	}
	if *path == "" {
		if p, ok := lookup(EnvPrefix + "CONFIG"); ok {
			*path = p
		}
	}

	cfg := Default()
	if *path != "" {
		if err := cfg.LoadFile(*path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", *path, "Path to a YAML config file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

type configVar struct {
	flag  string
	env   string
	usage string
	value flag.Value
}

func (c *Config) vars() []configVar {
	return []configVar{
		{"log-level", "LOG_LEVEL", "Log level", (*stringValue)(&c.LogLevel)},
		{"schema", "SCHEMA", "Path to the snapshot schema file", (*stringValue)(&c.Schema)},
		{"api-port", "API_PORT", "HTTP API port to listen on", (*intValue)(&c.APIPort)},
		{"tcp-port", "TCP_PORT", "TCP port to receive snapshots on", (*intValue)(&c.TCPPort)},
		{"watch-dir", "WATCH_DIR", "Directory to watch for snapshot files", (*stringValue)(&c.WatchDir)},
		{"watch-pattern", "WATCH_PATTERN", "File name pattern of watched snapshot files", (*stringValue)(&c.WatchPattern)},
		{"recording", "RECORDING", "Accept snapshots on startup", (*boolValue)(&c.Recording)},
		{"database-url", "DATABASE_URL", "Capture archive, sqlite://<path> or postgresql://<dsn>", (*stringValue)(&c.DatabaseURL)},
		{"migrations", "MIGRATIONS", "Migrations directory", (*stringValue)(&c.Migrations)},
		{"crc-log-dir", "CRC_LOG_DIR", "Directory of per-frame checksum logs", (*stringValue)(&c.CRCLogDir)},
		{"stream-interval", "STREAM_INTERVAL", "Interval between state stream polls", (*durationValue)(&c.StreamInterval)},
		{"shutdown-timeout", "SHUTDOWN_TIMEOUT", "Grace period for shutdown", (*durationValue)(&c.ShutdownTimeout)},
		{"max-snapshot-size", "MAX_SNAPSHOT_SIZE", "Largest accepted snapshot in bytes", (*int64Value)(&c.MaxSnapshotSize)},
	}
}

type stringValue string

func (s *stringValue) Set(v string) error { *s = stringValue(v); return nil }
func (s *stringValue) String() string     { return string(*s) }

type intValue int

func (i *intValue) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*i = intValue(n)
	return nil
}
func (i *intValue) String() string { return strconv.Itoa(int(*i)) }

type int64Value int64

func (i *int64Value) Set(v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*i = int64Value(n)
	return nil
}
func (i *int64Value) String() string { return strconv.FormatInt(int64(*i), 10) }

type boolValue bool

func (b *boolValue) Set(v string) error {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*b = boolValue(parsed)
	return nil
}
func (b *boolValue) String() string   { return strconv.FormatBool(bool(*b)) }
func (b *boolValue) IsBoolFlag() bool { return true }

type durationValue time.Duration

func (d *durationValue) Set(v string) error {
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*d = durationValue(parsed)
	return nil
}
func (d *durationValue) String() string { return time.Duration(*d).String() }
