// Package config loads mathexpr settings and variable bindings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tanersaydam/mathexpr/pkg/evaluator"
)

const (
	// ProjectFile is the per-project config file name.
	ProjectFile = ".mathexpr.yaml"
	// UserDir is the per-user config directory under $HOME.
	UserDir = ".mathexpr"
	// UserFile is the config file name inside UserDir.
	UserFile = "config.yaml"
)

// Config holds evaluator settings and default variable bindings.
type Config struct {
	Vars     map[string]float64 `yaml:"vars,omitempty"`
	MaxDepth int                `yaml:"maxDepth,omitempty"`
	Pretty   bool               `yaml:"pretty,omitempty"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// Error reports an invalid config or vars file.
type Error struct {
	Path string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the built-in configuration: no bindings, unlimited depth.
func Default() *Config {
	return &Config{Vars: map[string]float64{}}
}

// Load finds and loads the configuration for projectDir.
// Precedence: project (.mathexpr.yaml) → user (~/.mathexpr/config.yaml) → defaults.
// A missing file falls through to the next level; a malformed one is an error.
func Load(projectDir string) (*Config, error) {
	projectPath := filepath.Join(projectDir, ProjectFile)
	cfg, err := LoadFile(projectPath)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if homeDir, herr := os.UserHomeDir(); herr == nil {
		userPath := filepath.Join(homeDir, UserDir, UserFile)
		cfg, err = LoadFile(userPath)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return Default(), nil
}

// LoadFile reads and validates a single config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
			return nil, cerr
		}
		return nil, &Error{Path: path, Err: err}
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes and validates config YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	var raw struct {
		Vars     yaml.Node `yaml:"vars"`
		MaxDepth int       `yaml:"maxDepth"`
		Pretty   bool      `yaml:"pretty"`
	}
	if err := decodeStrict(data, &raw); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, &Error{Path: "<config>", Err: err}
	}

	if raw.MaxDepth < 0 {
		return nil, &Error{Path: "<config>", Key: "maxDepth", Err: errors.New("must not be negative")}
	}
	cfg.MaxDepth = raw.MaxDepth
	cfg.Pretty = raw.Pretty

	if raw.Vars.Kind != 0 {
		vars, err := decodeVars(&raw.Vars)
		if err != nil {
			return nil, err
		}
		cfg.Vars = vars
	}
	return cfg, nil
}

// LoadVarsFile reads a bare YAML mapping of variable bindings.
func LoadVarsFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if node.Kind == 0 {
		return map[string]float64{}, nil
	}
	vars, err := decodeVars(&node)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, err
	}
	return vars, nil
}

// ParseAssignment parses a "name=value" binding as given to --set.
func ParseAssignment(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid assignment %q: expected name=value", s)
	}
	name = strings.TrimSpace(name)
	if !IsIdent(name) {
		return "", 0, fmt.Errorf("invalid variable name %q", name)
	}
	val, err := parseNumber(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return name, val, nil
}

// Env materialises the configured bindings into a new scope under parent.
func (c *Config) Env(parent *evaluator.Env) *evaluator.Env {
	env := evaluator.NewEnv(parent)
	for name, v := range c.Vars {
		env.SetValue(name, v)
	}
	return env
}

// Names returns the configured variable names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Vars))
	for name := range c.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsIdent reports whether s is a valid variable name.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func decodeVars(node *yaml.Node) (map[string]float64, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return map[string]float64{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &Error{Path: "<config>", Key: "vars", Err: fmt.Errorf("expected a mapping at line %d", node.Line)}
	}

	vars := make(map[string]float64, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value
		if !IsIdent(name) {
			return nil, &Error{Path: "<config>", Key: name, Err: fmt.Errorf("invalid variable name at line %d", key.Line)}
		}
		if _, dup := vars[name]; dup {
			return nil, &Error{Path: "<config>", Key: name, Err: fmt.Errorf("duplicate binding at line %d", key.Line)}
		}
		if val.Kind != yaml.ScalarNode {
			return nil, &Error{Path: "<config>", Key: name, Err: fmt.Errorf("expected a number at line %d", val.Line)}
		}
		f, err := parseNumber(val.Value)
		if err != nil {
			return nil, &Error{Path: "<config>", Key: name, Err: err}
		}
		vars[name] = f
	}
	return vars, nil
}

// parseNumber accepts decimal floats plus the YAML spellings of the
// non-finite values (.inf, -.inf, .nan).
func parseNumber(s string) (float64, error) {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	case ".nan":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}
