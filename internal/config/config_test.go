package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt64OrDefault(t *testing.T) {
	os.Setenv("TEST_INT64_1", "-1001234567890")
	defer os.Unsetenv("TEST_INT64_1")

	if got := getEnvAsInt64OrDefault("TEST_INT64_1", 0); got != -1001234567890 {
		t.Errorf("Expected -1001234567890, got %d", got)
	}
	if got := getEnvAsInt64OrDefault("TEST_INT64_MISSING", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	os.Setenv("TEST_LIST_1", " spam , ,eggs,")
	defer os.Unsetenv("TEST_LIST_1")

	got := getEnvAsListOrDefault("TEST_LIST_1", nil)
	if len(got) != 2 || got[0] != "spam" || got[1] != "eggs" {
		t.Errorf("Expected [spam eggs], got %q", got)
	}

	def := []string{"x"}
	if got := getEnvAsListOrDefault("TEST_LIST_MISSING", def); len(got) != 1 || got[0] != "x" {
		t.Errorf("Expected default list, got %q", got)
	}
}

func TestLoad_RequiresTelegramToken(t *testing.T) {
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Setenv("GEMINI_API_KEY", "key")
	defer os.Unsetenv("GEMINI_API_KEY")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when TELEGRAM_BOT_TOKEN is missing")
		}
	}()
	Load()
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("TELEGRAM_BOT_TOKEN", "token")
	os.Setenv("GEMINI_API_KEY", "key")
	defer os.Unsetenv("TELEGRAM_BOT_TOKEN")
	defer os.Unsetenv("GEMINI_API_KEY")

	cfg := Load()
	if cfg.QuizBatchSize != 10 {
		t.Errorf("Expected quiz batch size 10, got %d", cfg.QuizBatchSize)
	}
	if cfg.MemoryBackend != "file" || cfg.MemoryDir != "data" {
		t.Errorf("Unexpected memory defaults: %q %q", cfg.MemoryBackend, cfg.MemoryDir)
	}
	if cfg.SMTPPort != "587" || cfg.AdminEmail != "" {
		t.Errorf("Unexpected SMTP defaults: %q %q", cfg.SMTPPort, cfg.AdminEmail)
	}
	if cfg.AdminAPIEnabled() {
		t.Error("Expected admin API to be disabled without JWT secret and password hash")
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}
