package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"flowscan-clone/internal/chain"
)

// Config is the typed configuration surface for one ingester instance,
// covering a single chain, one Postgres-compatible database, and one
// object-store bucket. Recognized env var overrides are applied on top
// of whatever the YAML file supplies, matching the teacher's pattern of
// a YAML base config plus container-friendly env overrides in main.go.
type Config struct {
	ChainRegistryName   string   `yaml:"chain_registry_name"`
	ChainID             string   `yaml:"chain_id"`
	APIs                []string `yaml:"apis"`
	BatchSize           int      `yaml:"batch_size"`
	StepSize            int      `yaml:"step_size"`
	TimeBetweenBlocksSec float64 `yaml:"time_between_blocks_sec"`

	DBURL      string `yaml:"db_url"`
	DBPoolSize int    `yaml:"db_pool_size"`
	SchemaName string `yaml:"schema_name"`

	BucketName                  string `yaml:"bucket_name"`
	ObjectStoreCredentialsPath  string `yaml:"object_store_credentials_path"`
	ObjectStoreStageToDisk      bool   `yaml:"object_store_stage_to_disk"`

	DebugAddr string `yaml:"debug_addr"`
}

const (
	defaultBatchSize = 20
	defaultStepSize  = 20
	defaultDebugAddr = ":9102"
)

// Load reads and parses a YAML config file, applying defaults to
// batch_size, step_size and debug_addr when the file leaves them unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.StepSize == 0 {
		c.StepSize = defaultStepSize
	}
	if c.DebugAddr == "" {
		c.DebugAddr = defaultDebugAddr
	}
}

// ApplyEnvOverrides mutates cfg in place from recognized environment
// variables. Container deployments set these instead of maintaining a
// mounted YAML file; unset variables leave the existing value alone.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHAIN_REGISTRY_NAME"); v != "" {
		c.ChainRegistryName = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		c.ChainID = v
	}
	if v := os.Getenv("CHAIN_APIS"); v != "" {
		c.APIs = splitList(v)
	}
	if v := getEnvInt("BATCH_SIZE", 0); v != 0 {
		c.BatchSize = v
	}
	if v := getEnvInt("STEP_SIZE", 0); v != 0 {
		c.StepSize = v
	}
	if v := getEnvFloat("TIME_BETWEEN_BLOCKS_SEC", 0); v != 0 {
		c.TimeBetweenBlocksSec = v
	}
	if v := os.Getenv("DB_URL"); v != "" {
		c.DBURL = v
	}
	if v := getEnvInt("DB_POOL_SIZE", 0); v != 0 {
		c.DBPoolSize = v
	}
	if v := os.Getenv("SCHEMA_NAME"); v != "" {
		c.SchemaName = v
	}
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.BucketName = v
	}
	if v := os.Getenv("OBJECT_STORE_CREDENTIALS_PATH"); v != "" {
		c.ObjectStoreCredentialsPath = v
	}
	if v := os.Getenv("OBJECT_STORE_STAGE_TO_DISK"); v != "" {
		c.ObjectStoreStageToDisk = v == "true" || v == "1"
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		c.DebugAddr = v
	}
}

// Descriptor converts the loaded config into the immutable chain.Descriptor
// the ingestion core operates on.
func (c *Config) Descriptor() chain.Descriptor {
	interval := time.Duration(c.TimeBetweenBlocksSec * float64(time.Second))
	return chain.Descriptor{
		ChainID:       c.ChainID,
		RegistryName:  c.ChainRegistryName,
		APIEndpoints:  c.APIs,
		BatchSize:     c.BatchSize,
		StepSize:      c.StepSize,
		BlockInterval: interval,
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}
