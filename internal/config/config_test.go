package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "app",
		"DB_HOST":                "localhost",
		"DB_PORT":                "3306",
		"DB_NAME":                "enrollment",
		"JWT_SECRET":             "secret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "30",
		"BCRYPT_COST":            "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg := Load()
	if cfg.Port != "8080" || cfg.DBName != "enrollment" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.AccessTTLMin != 15 || cfg.RefreshTTLDays != 30 || cfg.BcryptCost != 10 {
		t.Errorf("int fields not parsed: %+v", cfg)
	}
	if cfg.LockWaitSecs != 3 {
		t.Errorf("LockWaitSecs default = %d, want 3", cfg.LockWaitSecs)
	}
	if cfg.DBPass != "" {
		t.Errorf("DBPass should default to empty, got %q", cfg.DBPass)
	}
}

func TestLoadLockWaitOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EVENT_LOCK_WAIT_SECS", "7")
	if got := Load().LockWaitSecs; got != 7 {
		t.Errorf("LockWaitSecs = %d, want 7", got)
	}
}
