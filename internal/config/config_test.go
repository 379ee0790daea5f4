package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIPrefix != "/api" {
		t.Errorf("APIPrefix = %q, want /api", cfg.APIPrefix)
	}
	if cfg.DefaultStorageLimit != 50*1024*1024 {
		t.Errorf("DefaultStorageLimit = %d, want %d", cfg.DefaultStorageLimit, 50*1024*1024)
	}
	if cfg.ExpiryDays != 30 {
		t.Errorf("ExpiryDays = %d, want 30", cfg.ExpiryDays)
	}
	if cfg.UseS3Storage {
		t.Error("UseS3Storage = true by default, want false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EXPIRY_DAYS", "7")
	t.Setenv("DEFAULT_STORAGE_LIMIT", "1048576")
	t.Setenv("API_PREFIX", "/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.ExpiryDays != 7 {
		t.Errorf("ExpiryDays = %d, want 7", cfg.ExpiryDays)
	}
	if cfg.DefaultStorageLimit != 1048576 {
		t.Errorf("DefaultStorageLimit = %d, want 1048576", cfg.DefaultStorageLimit)
	}
	if cfg.APIPrefix != "/v1" {
		t.Errorf("APIPrefix = %q, want /v1", cfg.APIPrefix)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"prefix without slash", "API_PREFIX", "api"},
		{"negative storage limit", "DEFAULT_STORAGE_LIMIT", "-1"},
		{"negative expiry days", "EXPIRY_DAYS", "-5"},
		{"zero cleanup interval", "CLEANUP_INTERVAL_MINUTES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestValidationS3RequiresBucket(t *testing.T) {
	t.Setenv("USE_S3_STORAGE", "true")
	t.Setenv("AWS_BUCKET_NAME", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	if _, err := Load(); err == nil {
		t.Error("Load accepted S3 storage without a bucket")
	}
}

func TestExpiryDaysZeroAllowed(t *testing.T) {
	t.Setenv("EXPIRY_DAYS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load rejected EXPIRY_DAYS=0: %v", err)
	}
	if cfg.ExpiryDays != 0 {
		t.Errorf("ExpiryDays = %d, want 0", cfg.ExpiryDays)
	}
}
