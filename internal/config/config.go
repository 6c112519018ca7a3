// Package config handles configuration for trxreport.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kamilpajak/trxreport/internal/screenshot"
	"gopkg.in/yaml.v3"
)

// File names looked up in the working directory.
var fileNames = []string{".trxreport.yaml", ".trxreport.yml"}

// Config represents the trxreport configuration (.trxreport.yaml).
type Config struct {
	Input       string      `yaml:"input"`       // TRX file
	OutputDir   string      `yaml:"output_dir"`  // Report directory
	ReportName  string      `yaml:"report_name"` // HTML file name inside OutputDir
	Title       string      `yaml:"title"`       // Page title
	Screenshots Screenshots `yaml:"screenshots"`
}

// Screenshots configures screenshot matching and copying.
type Screenshots struct {
	Enabled        bool     `yaml:"enabled"`
	Dir            string   `yaml:"dir"`    // Source directory (read-only)
	Subdir         string   `yaml:"subdir"` // Destination folder inside OutputDir
	Embed          bool     `yaml:"embed"`  // Inline as base64
	FallbackLatest bool     `yaml:"fallback_latest"`
	StopWords      []string `yaml:"stop_words"`
}

// Default returns the configuration used when no file or flag says otherwise.
func Default() *Config {
	return &Config{
		Input:      filepath.Join("TestResults", "TestResults.trx"),
		OutputDir:  filepath.Join("TestResults", "html"),
		ReportName: "TestReport.html",
		Title:      "Test Results Report",
		Screenshots: Screenshots{
			Enabled:        true,
			Dir:            filepath.Join("TestResults", "screenshots"),
			Subdir:         "screenshots",
			FallbackLatest: true,
			StopWords:      append([]string(nil), screenshot.DefaultStopWords...),
		},
	}
}

// Error is returned for an unreadable or invalid config file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load loads configuration from a file. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse validates YAML config data against the schema and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// LoadFromDir looks for .trxreport.yaml or .trxreport.yml in the directory.
// It returns the defaults and an empty path when there is none.
func LoadFromDir(dir string) (*Config, string, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, "", &Error{Path: path, Err: err}
		}
		cfg, err := Load(path)
		return cfg, path, err
	}
	return Default(), "", nil
}

// ReportPath is the path of the HTML file.
func (c *Config) ReportPath() string {
	return filepath.Join(c.OutputDir, c.ReportName)
}

// ScreenshotOutputDir is where matched screenshots are copied.
func (c *Config) ScreenshotOutputDir() string {
	return filepath.Join(c.OutputDir, c.Screenshots.Subdir)
}
