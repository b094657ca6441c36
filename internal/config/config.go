package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/optilist/internal/errors"
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"optilist.json", "optilist.yaml", "optilist.yml"}

const (
	// DefaultAddress is the default server listen address.
	DefaultAddress = ":8080"

	// DefaultURL is the default server URL for clients.
	DefaultURL = "ws://localhost:8080/live"

	// DefaultList is the list the demo client writes to.
	DefaultList = "groceries"
)

// Config is the complete configuration.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Client  ClientConfig  `json:"client" yaml:"client"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	path string
}

// ServerConfig configures the acknowledgement server.
type ServerConfig struct {
	Address           string   `json:"address" yaml:"address"`
	ReadTimeout       Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      Duration `json:"write_timeout" yaml:"write_timeout"`
	HeartbeatInterval Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxSessions       int      `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty"`
	MaxMessageSize    int64    `json:"max_message_size" yaml:"max_message_size"`
}

// StoreConfig selects the item store.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the SQLite database path.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ClientConfig configures the demo client.
type ClientConfig struct {
	URL               string   `json:"url" yaml:"url"`
	List              string   `json:"list" yaml:"list"`
	DialTimeout       Duration `json:"dial_timeout" yaml:"dial_timeout"`
	HeartbeatInterval Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	StaleAfter        Duration `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           DefaultAddress,
			ReadTimeout:       Duration(60 * time.Second),
			WriteTimeout:      Duration(10 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
			ShutdownTimeout:   Duration(30 * time.Second),
			MaxMessageSize:    64 * 1024,
		},
		Store: StoreConfig{Driver: "memory"},
		Client: ClientConfig{
			URL:               DefaultURL,
			List:              DefaultList,
			DialTimeout:       Duration(10 * time.Second),
			HeartbeatInterval: Duration(25 * time.Second),
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
}

// Load reads the first config file found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E101").
		WithDetail("No optilist.json, optilist.yaml or optilist.yml in " + dir).
		WithSuggestion("Run 'optilist config init' to write one with the defaults")
}

// LoadFile reads the config file at path. The format follows the
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").WithDetail("No config file at " + path)
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = decodeJSON(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.New("E108").WithDetail("Unsupported config extension " + strconv.Quote(ext))
	}
	if err != nil {
		return nil, parseError(path, data, err)
	}

	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Location == nil {
			if line := findKeyLine(data, e); line > 0 {
				e.WithLocation(path, line, 0)
			}
		}
		return nil, err
	}
	return cfg, nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// parseError converts a decode error into E102 (or E104 for durations)
// with the best location the decoder reports.
func parseError(path string, data []byte, err error) *errors.Error {
	code := "E102"
	var de *durationError
	if stderrors.As(err, &de) {
		code = "E104"
	}
	e := errors.New(code).WithDetail(err.Error()).Wrap(err)

	var (
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
		line   int
		col    int
	)
	switch {
	case stderrors.As(err, &syntax):
		line, col = lineCol(data, syntax.Offset)
	case stderrors.As(err, &typ):
		line, col = lineCol(data, typ.Offset)
	case de != nil && de.line > 0:
		line = de.line
	default:
		if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	if line > 0 {
		e.WithLocation(path, line, col)
	}
	return e
}

// lineCol converts a byte offset into a 1-based line and column.
func lineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// findKeyLine returns the line of the first key named in a validation
// error detail, or 0.
func findKeyLine(data []byte, e *errors.Error) int {
	field, _, ok := strings.Cut(e.Detail, ":")
	if !ok {
		return 0
	}
	key := field[strings.LastIndex(field, ".")+1:]
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, key+":") || strings.HasPrefix(trimmed, `"`+key+`"`) {
			return i + 1
		}
	}
	return 0
}

// applyDefaults fills fields a file left empty.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Client.URL == "" {
		c.Client.URL = d.Client.URL
	}
	if c.Client.List == "" {
		c.Client.List = d.Client.List
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
}

// Validate checks the configuration and returns the first problem.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		return errors.New("E103").
			WithDetail(fmt.Sprintf("server.address: %q: %v", c.Server.Address, err)).
			WithSuggestion(`Use a form like ":8080" or "127.0.0.1:8080"`)
	}
	for name, d := range map[string]Duration{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"server.heartbeat_interval": c.Server.HeartbeatInterval,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"client.dial_timeout":       c.Client.DialTimeout,
		"client.heartbeat_interval": c.Client.HeartbeatInterval,
		"client.stale_after":        c.Client.StaleAfter,
	} {
		if d < 0 {
			return errors.New("E104").WithDetail(fmt.Sprintf("%s: %s is negative", name, d))
		}
	}
	if c.Server.MaxSessions < 0 {
		return errors.Newf(errors.CategoryConfig, "server.max_sessions: must not be negative")
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return errors.New("E105").
			WithDetail(fmt.Sprintf("store.driver: %q", c.Store.Driver)).
			WithExample("store:\n  driver: sqlite\n  dsn: items.sqlite")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("E106").WithDetail("log.level: " + err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E106").WithDetail(fmt.Sprintf("log.format: %q", c.Log.Format))
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("E107").WithDetail(fmt.Sprintf("metrics.path: %q", c.Metrics.Path))
	}
	return nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string { return c.path }

// SaveTo writes c to path as JSON or YAML, following the extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return errors.New("E108").WithDetail("Unsupported config extension " + strconv.Quote(filepath.Ext(path)))
	}
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E102").Wrap(err)
	}
	c.path = path
	return nil
}

// Find walks up from dir and returns the first directory holding a config
// file.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Resolve loads path when set, otherwise the nearest config file above
// the working directory, otherwise the defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if dir, ok := Find(wd); ok {
		return Load(dir)
	}
	return New(), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// NewLogger builds the logger the config describes, writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, errors.New("E106").WithDetail("log.level: " + err.Error())
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, errors.New("E106").WithDetail(fmt.Sprintf("log.format: %q", l.Format))
}
