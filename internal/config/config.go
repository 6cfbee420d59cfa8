package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up in the working directory
const DefaultPath = "configuration.json"

// Recognized configuration keys
const (
	KeyDatasetID      = "dataset_id"
	KeyAPIKey         = "app_api_key"
	KeyAPIKeyID       = "app_api_key_id"
	KeyPartID         = "part_id"
	KeyOrgID          = "org_id"
	KeyLocationID     = "location_id"
	KeyImageDirectory = "image_directory"
	KeyConcurrency    = "concurrency"
	KeyOnError        = "on_error"
	KeyUploadRate     = "upload_rate"
)

// Error policies for per-file failures
const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

// Config holds the settings for one upload run
type Config struct {
	DatasetID      string
	APIKey         string
	APIKeyID       string
	PartID         string
	OrgID          string
	LocationID     string
	ImageDirectory string

	Concurrency int
	OnError     string
	UploadRate  float64

	// keys whose values could not be parsed, reported by Validate
	invalid []string
}

// Load parses a structured key-value document. The format is picked from
// the file extension; anything that is not YAML is parsed as JSON.
func Load(path string) (map[string]any, error) {
	slog.Debug("Loading configuration", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	values := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &values)
	default:
		err = json.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	// an empty YAML document leaves the map nil
	if values == nil {
		values = map[string]any{}
	}

	return values, nil
}

// FromMap reads the recognized keys out of a parsed document.
// Missing keys fall back to the empty string.
func FromMap(values map[string]any) Config {
	cfg := Config{
		DatasetID:      str(values, KeyDatasetID),
		APIKey:         str(values, KeyAPIKey),
		APIKeyID:       str(values, KeyAPIKeyID),
		PartID:         str(values, KeyPartID),
		OrgID:          str(values, KeyOrgID),
		LocationID:     str(values, KeyLocationID),
		ImageDirectory: str(values, KeyImageDirectory),
		Concurrency:    1,
		OnError:        OnErrorAbort,
	}

	if v := str(values, KeyConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		} else {
			cfg.invalid = append(cfg.invalid, fmt.Sprintf("%s %q is not an integer", KeyConcurrency, v))
		}
	}
	if v := str(values, KeyOnError); v != "" {
		cfg.OnError = strings.ToLower(v)
	}
	if v := str(values, KeyUploadRate); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.UploadRate = r
		} else {
			cfg.invalid = append(cfg.invalid, fmt.Sprintf("%s %q is not a number", KeyUploadRate, v))
		}
	}

	return cfg
}

// LoadFile is Load followed by FromMap and ApplyEnv
func LoadFile(path string) (Config, error) {
	values, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	cfg := FromMap(values)
	cfg.ApplyEnv()
	return cfg, nil
}

var envOverrides = []struct {
	env   string
	field func(*Config) *string
}{
	{"VIAM_DATASET_ID", func(c *Config) *string { return &c.DatasetID }},
	{"VIAM_API_KEY", func(c *Config) *string { return &c.APIKey }},
	{"VIAM_API_KEY_ID", func(c *Config) *string { return &c.APIKeyID }},
	{"VIAM_PART_ID", func(c *Config) *string { return &c.PartID }},
	{"VIAM_ORG_ID", func(c *Config) *string { return &c.OrgID }},
	{"VIAM_LOCATION_ID", func(c *Config) *string { return &c.LocationID }},
	{"VIAM_IMAGE_DIRECTORY", func(c *Config) *string { return &c.ImageDirectory }},
}

// ApplyEnv overrides file values with any VIAM_* environment variables that are set
func (c *Config) ApplyEnv() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field(c) = v
			slog.Debug("Configuration overridden from environment", "env", o.env)
		}
	}
}

// Validate fails fast on empty required settings and bad run policy values
func (c Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{KeyDatasetID, c.DatasetID},
		{KeyAPIKey, c.APIKey},
		{KeyAPIKeyID, c.APIKeyID},
		{KeyPartID, c.PartID},
		{KeyOrgID, c.OrgID},
		{KeyLocationID, c.LocationID},
		{KeyImageDirectory, c.ImageDirectory},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &MissingConfigurationError{Keys: missing}
	}

	if len(c.invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(c.invalid, "; "))
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyConcurrency, c.Concurrency)
	}
	if c.OnError != OnErrorAbort && c.OnError != OnErrorContinue {
		return fmt.Errorf("%s must be %q or %q, got %q", KeyOnError, OnErrorAbort, OnErrorContinue, c.OnError)
	}
	if c.UploadRate < 0 {
		return fmt.Errorf("%s must not be negative, got %v", KeyUploadRate, c.UploadRate)
	}

	return nil
}

func str(values map[string]any, key string) string {
	v, ok := values[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64, keep them out of exponent form
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
