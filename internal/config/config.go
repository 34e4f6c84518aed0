// Package config turns command line flags and an optional YAML file into the
// observer's immutable startup configuration.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/monitor"
	"github.com/Hara602/fileSentry/internal/sink"
	"github.com/Hara602/fileSentry/internal/watcher"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const programName = "file-observer"

// Config is fixed at startup and passed by value
type Config struct {
	Target    model.WatchTarget
	Sink      model.SinkConfig
	Interval  time.Duration
	Backend   monitor.Backend
	LogLevel  string
	LogOutput string
}

// ConfigurationError is an invalid or incomplete startup configuration
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// raw holds values before validation. Booleans and the port stay strings so
// that presence and strict parsing can be checked separately.
type raw struct {
	path      string
	recursive string
	enabled   string
	address   string
	port      string
	interval  time.Duration
	timeout   time.Duration
	backend   string
	logLevel  string
	logOutput string
}

// Parse reads args (without the program name). Usage is written to errOut
// when the arguments are rejected. flag.ErrHelp is returned for --help.
func Parse(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		PrintUsage(fs.Output())
	}

	var flags raw
	var configFile string
	stringFlag(fs, &flags.path, "path", "p")
	stringFlag(fs, &flags.recursive, "recursive", "r")
	stringFlag(fs, &flags.enabled, "enable-webservice", "e")
	stringFlag(fs, &flags.address, "address", "a")
	stringFlag(fs, &flags.port, "port", "o")
	stringFlag(fs, &configFile, "config", "c")
	fs.DurationVar(&flags.interval, "interval", watcher.DefaultInterval, "")
	fs.DurationVar(&flags.timeout, "timeout", sink.DefaultTimeout, "")
	fs.StringVar(&flags.backend, "backend", string(monitor.BackendPoll), "")
	fs.StringVar(&flags.logLevel, "log-level", "info", "")
	fs.StringVar(&flags.logOutput, "log-output", "stdout", "")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 0 {
		return Config{}, usageError(fs, configErrorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[canonical(f.Name)] = true
	})

	merged := raw{
		interval:  watcher.DefaultInterval,
		timeout:   sink.DefaultTimeout,
		backend:   string(monitor.BackendPoll),
		logLevel:  "info",
		logOutput: "stdout",
	}
	if configFile != "" {
		if err := loadFile(configFile, &merged); err != nil {
			return Config{}, usageError(fs, err)
		}
	}
	merged.override(flags, set)

	cfg, err := merged.validate()
	if err != nil {
		return Config{}, usageError(fs, err)
	}
	return cfg, nil
}

func (r *raw) override(flags raw, set map[string]bool) {
	if set["path"] {
		r.path = flags.path
	}
	if set["recursive"] {
		r.recursive = flags.recursive
	}
	if set["enable-webservice"] {
		r.enabled = flags.enabled
	}
	if set["address"] {
		r.address = flags.address
	}
	if set["port"] {
		r.port = flags.port
	}
	if set["interval"] {
		r.interval = flags.interval
	}
	if set["timeout"] {
		r.timeout = flags.timeout
	}
	if set["backend"] {
		r.backend = flags.backend
	}
	if set["log-level"] {
		r.logLevel = flags.logLevel
	}
	if set["log-output"] {
		r.logOutput = flags.logOutput
	}
}

func (r raw) validate() (Config, error) {
	path := strings.TrimSpace(r.path)
	if path == "" {
		return Config{}, configErrorf("--path is required")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return Config{}, configErrorf("--path %q: %v", path, err)
	}

	if r.recursive == "" {
		return Config{}, configErrorf("--recursive is required")
	}
	recursive, err := parseBool("recursive", r.recursive)
	if err != nil {
		return Config{}, err
	}

	enabled := false
	if r.enabled != "" {
		if enabled, err = parseBool("enable-webservice", r.enabled); err != nil {
			return Config{}, err
		}
	}

	sinkCfg := model.SinkConfig{Timeout: r.timeout}
	if enabled {
		address := strings.TrimSpace(r.address)
		if address == "" {
			return Config{}, configErrorf("--address is required when the webservice is enabled")
		}
		if r.port == "" {
			return Config{}, configErrorf("--port is required when the webservice is enabled")
		}
		port, err := strconv.Atoi(strings.TrimSpace(r.port))
		if err != nil || port < 1 || port > 65535 {
			return Config{}, configErrorf("--port %q is not a port number", r.port)
		}
		sinkCfg.Address = address
		sinkCfg.Port = port
	}
	if err := sinkCfg.Validate(); err != nil {
		return Config{}, &ConfigurationError{Err: err}
	}

	if r.interval <= 0 {
		return Config{}, configErrorf("--interval must be positive")
	}
	if r.timeout <= 0 {
		return Config{}, configErrorf("--timeout must be positive")
	}
	backend, err := monitor.ParseBackend(r.backend)
	if err != nil {
		return Config{}, &ConfigurationError{Err: err}
	}
	if _, err := zapcore.ParseLevel(r.logLevel); err != nil {
		return Config{}, configErrorf("--log-level: %v", err)
	}

	return Config{
		Target:    model.WatchTarget{Root: root, Recursive: recursive},
		Sink:      sinkCfg,
		Interval:  r.interval,
		Backend:   backend,
		LogLevel:  r.logLevel,
		LogOutput: r.logOutput,
	}, nil
}

// parseBool accepts only the values strconv.ParseBool understands
func parseBool(name, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, configErrorf("--%s %q is not a boolean", name, value)
	}
	return b, nil
}

// fileConfig is the YAML file layout
type fileConfig struct {
	Path       string        `yaml:"path"`
	Recursive  *bool         `yaml:"recursive"`
	Interval   time.Duration `yaml:"interval"`
	Backend    string        `yaml:"backend"`
	Webservice struct {
		Enabled *bool         `yaml:"enabled"`
		Address string        `yaml:"address"`
		Port    int           `yaml:"port"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"webservice"`
	Log struct {
		Level  string `yaml:"level"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

func loadFile(name string, r *raw) error {
	f, err := os.Open(name)
	if err != nil {
		return &ConfigurationError{Err: err}
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return configErrorf("config file %s: %v", name, err)
	}

	if fc.Path != "" {
		r.path = fc.Path
		// relative paths in the file are relative to the file
		if !filepath.IsAbs(fc.Path) {
			r.path = filepath.Join(filepath.Dir(name), fc.Path)
		}
	}
	if fc.Recursive != nil {
		r.recursive = strconv.FormatBool(*fc.Recursive)
	}
	if fc.Interval != 0 {
		r.interval = fc.Interval
	}
	if fc.Backend != "" {
		r.backend = fc.Backend
	}
	if fc.Webservice.Enabled != nil {
		r.enabled = strconv.FormatBool(*fc.Webservice.Enabled)
	}
	if fc.Webservice.Address != "" {
		r.address = fc.Webservice.Address
	}
	if fc.Webservice.Port != 0 {
		r.port = strconv.Itoa(fc.Webservice.Port)
	}
	if fc.Webservice.Timeout != 0 {
		r.timeout = fc.Webservice.Timeout
	}
	if fc.Log.Level != "" {
		r.logLevel = fc.Log.Level
	}
	if fc.Log.Output != "" {
		r.logOutput = fc.Log.Output
	}
	return nil
}

func usageError(fs *flag.FlagSet, err error) error {
	fmt.Fprintf(fs.Output(), "error: %v\n\n", err)
	fs.Usage()
	return err
}
