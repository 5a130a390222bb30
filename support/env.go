package support

import (
	"os"
	"strings"
	"time"

	"github.com/project-flogo/core/data/coerce"
)

const (
	EnvConfigFile      = "RECRUIT_CONFIG"
	EnvStoreDriver     = "RECRUIT_STORE_DRIVER"
	EnvBadgerPath      = "RECRUIT_BADGER_PATH"
	EnvBadgerInMemory  = "RECRUIT_BADGER_IN_MEMORY"
	EnvDatabaseURL     = "RECRUIT_DATABASE_URL"
	EnvDatabaseMaxOpen = "RECRUIT_DATABASE_MAX_OPEN_CONNS"
	EnvRecordingMode   = "RECRUIT_RECORDING_MODE"
	EnvBreakerTimeout  = "RECRUIT_BREAKER_TIMEOUT"
	EnvBreakerFailures = "RECRUIT_BREAKER_FAILURES"
	EnvInspectPort     = "RECRUIT_INSPECT_PORT"
	EnvBottleneckLimit = "RECRUIT_BOTTLENECK_LIMIT"
	EnvProcesses       = "RECRUIT_PROCESSES"
)

// GetConfigFile returns the configuration file named by the environment
func GetConfigFile() string {
	return os.Getenv(EnvConfigFile)
}

// applyEnv overrides the values of cfg that are set in the environment
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvStoreDriver); ok {
		cfg.Store.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvBadgerPath); ok {
		cfg.Store.Badger.Path = v
	}
	if v, ok := os.LookupEnv(EnvBadgerInMemory); ok {
		b, err := coerce.ToBool(v)
		if err != nil {
			return envError(EnvBadgerInMemory, err)
		}
		cfg.Store.Badger.InMemory = b
	}
	if v, ok := os.LookupEnv(EnvDatabaseURL); ok {
		cfg.Store.Postgres.URL = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseMaxOpen); ok {
		n, err := coerce.ToInt(v)
		if err != nil {
			return envError(EnvDatabaseMaxOpen, err)
		}
		cfg.Store.Postgres.MaxOpenConns = n
	}
	if v, ok := os.LookupEnv(EnvRecordingMode); ok {
		cfg.Recording.Mode = v
	}
	if v, ok := os.LookupEnv(EnvBreakerTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError(EnvBreakerTimeout, err)
		}
		cfg.Breaker.Timeout = d
	}
	if v, ok := os.LookupEnv(EnvBreakerFailures); ok {
		n, err := coerce.ToInt(v)
		if err != nil || n < 0 {
			return envError(EnvBreakerFailures, err)
		}
		cfg.Breaker.ConsecutiveFailures = uint32(n)
	}
	if v, ok := os.LookupEnv(EnvInspectPort); ok {
		n, err := coerce.ToInt(v)
		if err != nil {
			return envError(EnvInspectPort, err)
		}
		cfg.Inspect.Port = n
	}
	if v, ok := os.LookupEnv(EnvBottleneckLimit); ok {
		n, err := coerce.ToInt(v)
		if err != nil {
			return envError(EnvBottleneckLimit, err)
		}
		cfg.Inspect.BottleneckLimit = n
	}
	if v, ok := os.LookupEnv(EnvProcesses); ok {
		cfg.Processes = nil
		for _, uri := range strings.Split(v, ",") {
			if uri = strings.TrimSpace(uri); uri != "" {
				cfg.Processes = append(cfg.Processes, uri)
			}
		}
	}
	return nil
}
