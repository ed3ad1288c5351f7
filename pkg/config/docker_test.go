package config

import (
	"testing"
)

func TestDockerHost(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		expected string
	}{
		{"localhost", false, "localhost"},
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"::1", true, "host.docker.internal"},
		{"mydb.example.com", true, "mydb.example.com"},
		{"192.168.1.100", true, "192.168.1.100"},
	}

	for _, tt := range tests {
		if got := dockerHost(tt.host, tt.inDocker); got != tt.expected {
			t.Errorf("dockerHost(%q, %v) = %q, want %q", tt.host, tt.inDocker, got, tt.expected)
		}
	}
}

func TestApplyDockerHosts(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "localhost"},
		Redis:    RedisConfig{Host: "127.0.0.1"},
	}
	cfg.applyDockerHosts(true)

	if cfg.Database.Host != "host.docker.internal" {
		t.Errorf("expected database host rewritten, got %s", cfg.Database.Host)
	}
	if cfg.Redis.Host != "host.docker.internal" {
		t.Errorf("expected redis host rewritten, got %s", cfg.Redis.Host)
	}

	disabled := &Config{Database: DatabaseConfig{Host: "localhost"}}
	disabled.applyDockerHosts(true)
	if disabled.Redis.Enabled() {
		t.Error("empty redis host must stay disabled")
	}
}
