package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetFabricConfig(); got != "/etc/srctl/fabric.yaml" {
		t.Errorf("GetFabricConfig() default = %q, want %q", got, "/etc/srctl/fabric.yaml")
	}

	if s.RedisAddr != "" {
		t.Errorf("RedisAddr should be empty, got %q", s.RedisAddr)
	}
	if s.DefaultRoot != "" {
		t.Errorf("DefaultRoot should be empty, got %q", s.DefaultRoot)
	}
}

func TestSettings_SettersGetters(t *testing.T) {
	s := &Settings{}

	s.SetRedisAddr("redis.internal:6379")
	if s.RedisAddr != "redis.internal:6379" {
		t.Errorf("SetRedisAddr() failed, got %q", s.RedisAddr)
	}

	s.SetDefaultRoot("leaf1")
	if s.DefaultRoot != "leaf1" {
		t.Errorf("SetDefaultRoot() failed, got %q", s.DefaultRoot)
	}

	s.SetFabricConfig("/custom/fabric.yaml")
	if s.GetFabricConfig() != "/custom/fabric.yaml" {
		t.Errorf("SetFabricConfig() failed, got %q", s.GetFabricConfig())
	}

	s.SetInstanceID("controller-1")
	if s.InstanceID != "controller-1" {
		t.Errorf("SetInstanceID() failed, got %q", s.InstanceID)
	}

	s.SetTopologyFile("/custom/topology.yaml")
	if s.GetTopologyFile() != "/custom/topology.yaml" {
		t.Errorf("SetTopologyFile() failed, got %q", s.GetTopologyFile())
	}
}

func TestSettings_TopologyFileDefault(t *testing.T) {
	s := &Settings{}
	if got := s.GetTopologyFile(); got != "/etc/srctl/topology.yaml" {
		t.Errorf("GetTopologyFile() default = %q, want %q", got, "/etc/srctl/topology.yaml")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		RedisAddr:    "redis:6379",
		FabricConfig: "/path/fabric.yaml",
		DefaultRoot:  "leaf1",
		InstanceID:   "controller-1",
	}

	s.Clear()

	if s.RedisAddr != "" || s.FabricConfig != "" || s.DefaultRoot != "" || s.InstanceID != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "srctl-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "settings.json")

	original := &Settings{
		RedisAddr:    "redis.internal:6379",
		FabricConfig: "/etc/srctl/fabric.yaml",
		DefaultRoot:  "leaf1",
		InstanceID:   "controller-1",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.RedisAddr != original.RedisAddr {
		t.Errorf("RedisAddr mismatch: got %q, want %q", loaded.RedisAddr, original.RedisAddr)
	}
	if loaded.FabricConfig != original.FabricConfig {
		t.Errorf("FabricConfig mismatch: got %q, want %q", loaded.FabricConfig, original.FabricConfig)
	}
	if loaded.DefaultRoot != original.DefaultRoot {
		t.Errorf("DefaultRoot mismatch: got %q, want %q", loaded.DefaultRoot, original.DefaultRoot)
	}
	if loaded.InstanceID != original.InstanceID {
		t.Errorf("InstanceID mismatch: got %q, want %q", loaded.InstanceID, original.InstanceID)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/settings.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.RedisAddr != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "srctl-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "settings.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadFrom(path)
	if err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "srctl-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "settings.json")

	s := &Settings{RedisAddr: "redis:6379"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if path == "" {
		t.Error("DefaultSettingsPath() should not be empty")
	}
	if !filepath.IsAbs(path) && path != "srctl_settings.json" {
		t.Errorf("DefaultSettingsPath() should be absolute or fallback, got %q", path)
	}
}

func TestLoad(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "srctl-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file should not error: %v", err)
	}
	if s == nil {
		t.Fatal("Load() should return non-nil Settings")
	}
	if s.RedisAddr != "" {
		t.Error("Load() with non-existent file should return empty settings")
	}

	srctlDir := filepath.Join(tmpDir, ".srctl")
	if err := os.MkdirAll(srctlDir, 0755); err != nil {
		t.Fatalf("Failed to create .srctl dir: %v", err)
	}

	settingsPath := filepath.Join(srctlDir, "settings.json")
	testSettings := `{"redis_addr":"redis.internal:6379","default_root":"leaf1"}`
	if err := os.WriteFile(settingsPath, []byte(testSettings), 0644); err != nil {
		t.Fatalf("Failed to write test settings: %v", err)
	}

	s, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s.RedisAddr != "redis.internal:6379" {
		t.Errorf("Load() RedisAddr = %q, want %q", s.RedisAddr, "redis.internal:6379")
	}
	if s.DefaultRoot != "leaf1" {
		t.Errorf("Load() DefaultRoot = %q, want %q", s.DefaultRoot, "leaf1")
	}
}

func TestSave(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "srctl-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s := &Settings{
		RedisAddr:   "redis.internal:6379",
		DefaultRoot: "leaf1",
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, ".srctl", "settings.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Save() did not create file at %s", expectedPath)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if loaded.RedisAddr != "redis.internal:6379" {
		t.Errorf("After Save(), RedisAddr = %q, want %q", loaded.RedisAddr, "redis.internal:6379")
	}
	if loaded.DefaultRoot != "leaf1" {
		t.Errorf("After Save(), DefaultRoot = %q, want %q", loaded.DefaultRoot, "leaf1")
	}
}

func TestDefaultSettingsPath_NoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	os.Unsetenv("HOME")

	path := DefaultSettingsPath()
	if path != "srctl_settings.json" {
		t.Errorf("DefaultSettingsPath() with no HOME = %q, want %q", path, "srctl_settings.json")
	}
}

func TestLoadFrom_ReadError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "srctl-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dirAsFile := filepath.Join(tmpDir, "settings.json")
	if err := os.Mkdir(dirAsFile, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err = LoadFrom(dirAsFile)
	if err == nil {
		t.Error("LoadFrom() should error when path is a directory")
	}
}

func TestSaveTo_MkdirError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "srctl-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	blockingFile := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blockingFile, []byte("blocking"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	path := filepath.Join(blockingFile, "subdir", "settings.json")
	s := &Settings{RedisAddr: "redis:6379"}

	err = s.SaveTo(path)
	if err == nil {
		t.Error("SaveTo() should fail when directory creation fails")
	}
}
