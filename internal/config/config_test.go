package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		UserID:   "user-abc",
		BaseDir:  "/home/user/.local/share/folio",
		LogDir:   "/home/user/.local/share/folio/log",
		LogLevel: "debug",
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/folio/db"},
		BlobStore: BlobStoreConfig{
			Type:     "s3",
			S3Bucket: "folio-blobs",
			S3Prefix: "users/abc",
			S3Region: "eu-west-1",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/folio/keys/folio.pub",
			PrivateKeyPath: "/home/user/.local/share/folio/keys/folio.key",
		},
		Matching: MatchingConfig{HighThreshold: 0.9, LowThreshold: 0.2, SketchSize: 64},
		Ingest:   IngestConfig{Ignore: []string{"*.log", "dist"}, HashWorkers: 4},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.UserID != original.UserID {
		t.Errorf("UserID = %q, want %q", got.UserID, original.UserID)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.BlobStore.S3Bucket != "folio-blobs" {
		t.Errorf("BlobStore.S3Bucket = %q, want %q", got.BlobStore.S3Bucket, "folio-blobs")
	}
	if got.BlobStore.S3Region != "eu-west-1" {
		t.Errorf("BlobStore.S3Region = %q, want %q", got.BlobStore.S3Region, "eu-west-1")
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if got.Matching.HighThreshold != 0.9 {
		t.Errorf("Matching.HighThreshold = %v, want 0.9", got.Matching.HighThreshold)
	}
	if got.Matching.SketchSize != 64 {
		t.Errorf("Matching.SketchSize = %d, want 64", got.Matching.SketchSize)
	}
	if len(got.Ingest.Ignore) != 2 {
		t.Fatalf("len(Ingest.Ignore) = %d, want 2", len(got.Ingest.Ignore))
	}
	if got.Ingest.HashWorkers != 4 {
		t.Errorf("Ingest.HashWorkers = %d, want 4", got.Ingest.HashWorkers)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("user-1", "/data/folio")

	if cfg.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", cfg.UserID, "user-1")
	}
	if cfg.LogDir != "/data/folio/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/folio/log")
	}
	if cfg.Database.DataDir != "/data/folio/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/folio/db")
	}
	if cfg.BlobStore.FSRoot != "/data/folio/blobs" {
		t.Errorf("BlobStore.FSRoot = %q, want %q", cfg.BlobStore.FSRoot, "/data/folio/blobs")
	}
	if cfg.Encryption.PublicKeyPath != "/data/folio/keys/folio.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/folio/keys/folio.pub")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_MatchConfig(t *testing.T) {
	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := NewConfig("u", "/data")
		mc := cfg.MatchConfig()
		if mc.HighThreshold != 0.8 || mc.LowThreshold != 0.3 {
			t.Errorf("thresholds = %v/%v, want 0.8/0.3", mc.HighThreshold, mc.LowThreshold)
		}
		if mc.SmallProjectFiles != 5 || mc.MinAbsoluteOverlap != 2 {
			t.Errorf("small project guard = %d/%d, want 5/2", mc.SmallProjectFiles, mc.MinAbsoluteOverlap)
		}
	})

	t.Run("set values override defaults", func(t *testing.T) {
		cfg := NewConfig("u", "/data")
		cfg.Matching.HighThreshold = 0.95
		cfg.Matching.Workers = 3
		mc := cfg.MatchConfig()
		if mc.HighThreshold != 0.95 {
			t.Errorf("HighThreshold = %v, want 0.95", mc.HighThreshold)
		}
		if mc.Workers != 3 {
			t.Errorf("Workers = %d, want 3", mc.Workers)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing user", func(c *Config) { c.UserID = "" }, "user_id"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"unknown database", func(c *Config) { c.Database.Type = "postgres" }, "database type"},
		{"sqlite without dir", func(c *Config) { c.Database.DataDir = "" }, "data_dir"},
		{"s3 without bucket", func(c *Config) { c.BlobStore = BlobStoreConfig{Type: "s3"} }, "s3_bucket"},
		{"unknown blob store", func(c *Config) { c.BlobStore.Type = "ftp" }, "blob_store type"},
		{"unknown encryption", func(c *Config) { c.Encryption.Type = "rot13" }, "encryption type"},
		{"thresholds inverted", func(c *Config) {
			c.Matching.HighThreshold = 0.2
			c.Matching.LowThreshold = 0.5
		}, "matching"},
		{"sketch too large", func(c *Config) { c.Matching.SketchSize = 5000 }, "sketch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("user-1", "/data/folio")
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "folio.toml")
		cfg := NewConfig("u1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "folio.toml")
		cfg := NewConfig("u1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "folio.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.UserID != "read-test" {
			t.Errorf("UserID = %q, want %q", got.UserID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/folio.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
