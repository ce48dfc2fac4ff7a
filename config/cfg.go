package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"kfcss/css"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	BreakpointConfig struct {
		Prefix   string `yaml:"prefix" validate:"required"`
		MinWidth string `yaml:"min_width" validate:"required"`
	}

	MirrorConfig struct {
		Input  string `yaml:"input" sanitize:"path_clean" validate:"required"`
		Output string `yaml:"output" sanitize:"path_clean" validate:"required"`
	}

	ProjectConfig struct {
		BaseDir        string `yaml:"base_dir,omitempty" sanitize:"path_clean"`
		Entry          string `yaml:"entry" validate:"required"`
		OutDir         string `yaml:"out_dir" validate:"required"`
		BaseName       string `yaml:"base_name" validate:"required,nefield=ResponsiveName"`
		ResponsiveName string `yaml:"responsive_name" validate:"required"`
	}

	CompilerConfig struct {
		Command string        `yaml:"command,omitempty"`
		Args    []string      `yaml:"args,omitempty"`
		Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	}

	WatchConfig struct {
		Paths    []string      `yaml:"paths" validate:"dive,required"`
		Patterns []string      `yaml:"patterns" validate:"min=1,dive,required"`
		Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	}

	ServerConfig struct {
		Listen    string `yaml:"listen" validate:"required,hostname_port"`
		VirtualID string `yaml:"virtual_id" validate:"required"`
		CacheSize int    `yaml:"cache_size" validate:"min=1"`
	}

	Config struct {
		Version     int                `yaml:"version" validate:"eq=1"`
		Breakpoints []BreakpointConfig `yaml:"breakpoints" validate:"min=1,dive"`
		Mirror      MirrorConfig       `yaml:"mirror"`
		Project     ProjectConfig      `yaml:"project"`
		Compiler    CompilerConfig     `yaml:"compiler"`
		Watch       WatchConfig        `yaml:"watch"`
		Server      ServerConfig       `yaml:"server"`
		Logging     LoggingConfig      `yaml:"logging"`
		Reporting   ReporterConfig     `yaml:"reporting"`
	}
)

// Compiler arguments are expanded at build time, they use their own
// delimiters so configuration processing leaves them alone.
const (
	CompilerArgsLeftDelim  = "[["
	CompilerArgsRightDelim = "]]"
)

var requiredOptions []func(*gencfg.ProcessingOptions)

// BreakpointList converts configured breakpoints to the form used by the
// expander, order is preserved.
func (cfg *Config) BreakpointList() []css.Breakpoint {
	bps := make([]css.Breakpoint, 0, len(cfg.Breakpoints))
	for _, bp := range cfg.Breakpoints {
		bps = append(bps, css.Breakpoint{Prefix: bp.Prefix, MinWidth: bp.MinWidth})
	}
	return bps
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
		if err := css.CheckBreakpoints(cfg.BreakpointList()); err != nil {
			return nil, fmt.Errorf("bad breakpoints configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
