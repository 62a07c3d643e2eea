package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Database struct {
		Driver string `json:"driver" toml:"driver" validate:"oneof=sqlite postgres"`
		Path   string `json:"path" toml:"path" validate:"required_if=Driver sqlite"`
	} `json:"database" toml:"database"`

	Checker struct {
		Pagination      uint32 `json:"pagination" toml:"pagination" validate:"min=1"`
		Timeout         uint32 `json:"timeout" toml:"timeout" validate:"min=1"` // seconds
		MaxFails        uint32 `json:"max_fails" toml:"max_fails" validate:"min=1"`
		HeadDest        string `json:"head_dest" toml:"head_dest" validate:"required,url"`
		Concurrency     uint32 `json:"concurrency" toml:"concurrency" validate:"min=1"`
		MaxPagesPerRun  uint32 `json:"max_pages_per_run" toml:"max_pages_per_run"` // 0 walks every page
		ProbesPerSecond uint32 `json:"probes_per_second" toml:"probes_per_second"` // 0 disables pacing
		CheckerTimer    Timer  `json:"checker_timer" toml:"checker_timer"`
	} `json:"checker" toml:"checker"`

	Sweeper struct {
		Pagination   uint32 `json:"pagination" toml:"pagination" validate:"min=1"`
		Concurrency  uint32 `json:"concurrency" toml:"concurrency" validate:"min=1"`
		SweeperTimer Timer  `json:"sweeper_timer" toml:"sweeper_timer"` // zero follows checker_timer
	} `json:"sweeper" toml:"sweeper"`

	Availability struct {
		MaxAttempts     uint32 `json:"max_attempts" toml:"max_attempts" validate:"min=1"`
		WidenCandidates bool   `json:"widen_candidates" toml:"widen_candidates"`
		MaxCandidates   uint32 `json:"max_candidates" toml:"max_candidates" validate:"min=1"`
	} `json:"availability" toml:"availability"`

	API struct {
		RequestsPerSecond float64 `json:"requests_per_second" toml:"requests_per_second" validate:"gte=0"` // 0 disables throttling
		Burst             uint32  `json:"burst" toml:"burst"`
	} `json:"api" toml:"api"`
}

type Timer struct {
	Days    uint32 `json:"days" toml:"days"`
	Hours   uint32 `json:"hours" toml:"hours"`
	Minutes uint32 `json:"minutes" toml:"minutes"`
	Seconds uint32 `json:"seconds" toml:"seconds"`
}

const DefaultSettingsPath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex

	validate = validator.New(validator.WithRequiredStructEnabled())
)

func init() {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	configValue.Store(cfg)
}

// DefaultConfig decodes the embedded defaults.
func DefaultConfig() (Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode defaults: %w", err)
	}
	return cfg, nil
}

// ReadSettings loads path (json or toml by extension), creating it from the
// embedded defaults when missing.
func ReadSettings(path string) error {
	if path == "" {
		path = DefaultSettingsPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read %s: %w", path, err)
		}

		log.Warn("Settings file not found, creating with default configuration", "path", path)

		data, err = defaultsFor(path)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("config: create settings directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("config: write default settings: %w", err)
		}
	}

	newConfig, err := decode(path, data)
	if err != nil {
		return err
	}

	if err := SetConfig(newConfig); err != nil {
		return err
	}

	log.Debug("Settings file loaded successfully", "path", path)
	return nil
}

// SetConfig validates and publishes a configuration.
func SetConfig(newConfig Config) error {
	if err := Validate(newConfig); err != nil {
		return err
	}

	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	SetBetweenTime()

	return nil
}

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid settings: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config: invalid settings: %w", err)
	}
	return nil
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func decode(path string, data []byte) (Config, error) {
	// Start from defaults so partial files only override what they name.
	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func defaultsFor(path string) ([]byte, error) {
	if !isTOML(path) {
		return defaultConfig, nil
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: encode default toml: %w", err)
	}
	return buf.Bytes(), nil
}
