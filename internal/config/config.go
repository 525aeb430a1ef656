package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"folio-go/internal/folio"
)

// Config represents the main configuration for folio.
type Config struct {
	UserID     string           `toml:"user_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"`
	Database   DatabaseConfig   `toml:"database"`
	BlobStore  BlobStoreConfig  `toml:"blob_store"`
	Encryption EncryptionConfig `toml:"encryption"`
	Matching   MatchingConfig   `toml:"matching"`
	Ingest     IngestConfig     `toml:"ingest"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlobStoreConfig represents configuration for the content blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for blob encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MatchingConfig holds the similarity thresholds. Zero values use defaults.
type MatchingConfig struct {
	HighThreshold      float64 `toml:"high_threshold"`
	LowThreshold       float64 `toml:"low_threshold"`
	SmallProjectFiles  int     `toml:"small_project_files"`
	MinAbsoluteOverlap int     `toml:"min_absolute_overlap"`
	SketchSize         int     `toml:"sketch_size"`
	PrefilterMargin    float64 `toml:"prefilter_margin"`
	Workers            int     `toml:"workers"`
}

// IngestConfig holds archive intake settings.
type IngestConfig struct {
	Ignore      []string `toml:"ignore"`
	HashWorkers int      `toml:"hash_workers"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:   userID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		BlobStore: BlobStoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blobs"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "folio.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "folio.key"),
		},
		Ingest: IngestConfig{
			Ignore: []string{".DS_Store", "__MACOSX", "node_modules"},
		},
	}
}

// MatchConfig returns the matcher thresholds, filling unset values with
// defaults.
func (c *Config) MatchConfig() folio.MatchConfig {
	mc := folio.DefaultMatchConfig()
	m := c.Matching
	if m.HighThreshold != 0 {
		mc.HighThreshold = m.HighThreshold
	}
	if m.LowThreshold != 0 {
		mc.LowThreshold = m.LowThreshold
	}
	if m.SmallProjectFiles != 0 {
		mc.SmallProjectFiles = m.SmallProjectFiles
	}
	if m.MinAbsoluteOverlap != 0 {
		mc.MinAbsoluteOverlap = m.MinAbsoluteOverlap
	}
	if m.SketchSize != 0 {
		mc.SketchSize = m.SketchSize
	}
	if m.PrefilterMargin != 0 {
		mc.PrefilterMargin = m.PrefilterMargin
	}
	if m.Workers != 0 {
		mc.Workers = m.Workers
	}
	return mc
}

// HashWorkers returns the number of files hashed in parallel.
func (c *Config) HashWorkers() int {
	if c.Ingest.HashWorkers > 0 {
		return c.Ingest.HashWorkers
	}
	return runtime.NumCPU()
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.Database.Type {
	case "memory":
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("database.data_dir is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	switch c.BlobStore.Type {
	case "", "none", "memory":
	case "filesystem":
		if c.BlobStore.FSRoot == "" {
			return fmt.Errorf("blob_store.fs_root is required for filesystem")
		}
	case "s3":
		if c.BlobStore.S3Bucket == "" {
			return fmt.Errorf("blob_store.s3_bucket is required for s3")
		}
	default:
		return fmt.Errorf("unknown blob_store type %q", c.BlobStore.Type)
	}
	switch c.Encryption.Type {
	case "", "none", "test":
	case "age":
		if c.Encryption.PublicKeyPath == "" || c.Encryption.PrivateKeyPath == "" {
			return fmt.Errorf("encryption key paths are required for age")
		}
	default:
		return fmt.Errorf("unknown encryption type %q", c.Encryption.Type)
	}
	if c.Ingest.HashWorkers < 0 {
		return fmt.Errorf("ingest.hash_workers must not be negative")
	}
	if err := c.MatchConfig().Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	return nil
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

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
