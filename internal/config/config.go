package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for obslog.
type Config struct {
	// OwnerID is the logbook user the CLI acts for.
	OwnerID    string           `toml:"owner_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Archive    ArchiveConfig    `toml:"archive"`
	Queue      QueueConfig      `toml:"queue"`
	Encryption EncryptionConfig `toml:"encryption"`
	Import     ImportConfig     `toml:"import"`
}

// DatabaseConfig represents configuration for the logbook database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the document archive, where
// submitted documents wait for the import worker.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type      string `toml:"type"`      // "memory", "filesystem" or "s3"
	Encrypted bool   `toml:"encrypted"` // encrypt documents at rest with the configured key

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // custom endpoint for S3-compatible stores

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// QueueConfig represents configuration for the import queue.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type QueueConfig struct {
	Type     string `toml:"type"`                // "memory" or "filesystem"
	QueueDir string `toml:"queue_dir,omitempty"` // only used for type=filesystem
}

// EncryptionConfig holds paths to the age key pair used for archived documents.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ImportConfig tunes import jobs.
type ImportConfig struct {
	BatchSize int    `toml:"batch_size"` // observations per transaction, defaults to 500
	Timeout   string `toml:"timeout"`    // Go duration, defaults to "1h"
}

// TimeoutDuration parses Timeout. An empty value yields zero, meaning the default.
func (c ImportConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid import timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid import timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// NewConfig creates a new Config with the provided values and defaults
// laid out under baseDir.
func NewConfig(ownerID, baseDir string) *Config {
	return &Config{
		OwnerID: ownerID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Archive: ArchiveConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "archive"),
		},
		Queue: QueueConfig{
			Type:     "filesystem",
			QueueDir: filepath.Join(baseDir, "queue"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "obslog.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "obslog.key"),
		},
		Import: ImportConfig{
			BatchSize: 500,
			Timeout:   "1h",
		},
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.OwnerID == "" {
		errs = append(errs, errors.New("owner_id is required"))
	}
	if c.Import.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("import.batch_size must not be negative, got %d", c.Import.BatchSize))
	}
	if _, err := c.Import.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Archive.Type == "s3" && c.Archive.S3Bucket == "" {
		errs = append(errs, errors.New("archive.s3_bucket is required for type s3"))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file at path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
