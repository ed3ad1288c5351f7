package config

import (
	"os"
	"sync"
)

const dockerEnvFile = "/.dockerenv"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat(dockerEnvFile)
		isDockerResult = err == nil
	})
	return isDockerResult
}

// dockerHost rewrites loopback hosts to host.docker.internal inside a container
// so Postgres and Redis running on the host machine stay reachable.
func dockerHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}

func (c *Config) applyDockerHosts(inDocker bool) {
	c.Database.Host = dockerHost(c.Database.Host, inDocker)
	if c.Redis.Enabled() {
		c.Redis.Host = dockerHost(c.Redis.Host, inDocker)
	}
}
