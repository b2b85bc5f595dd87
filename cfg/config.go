package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/maxpert/serverconfig/document"
	"github.com/rs/zerolog/log"
)

// AppID scopes machine-derived identifiers to this application
const AppID = "marmot-servers"

// MetadataStoreType selects where server metadata is kept
type MetadataStoreType string

const (
	MetadataMemory MetadataStoreType = "memory" // Process memory only
	MetadataPebble MetadataStoreType = "pebble" // Pebble database under data_dir
)

// ServerConfiguration describes the local server's own row
type ServerConfiguration struct {
	Name string   `toml:"name"` // Initial name, defaults to a sanitized hostname
	Tags []string `toml:"tags"` // Initial tags
}

// MetadataConfiguration controls the metadata view
type MetadataConfiguration struct {
	Store            MetadataStoreType `toml:"store"`
	PebbleCacheMB    int64             `toml:"pebble_cache_mb"`
	StatsIntervalSec int               `toml:"stats_interval_seconds"`
}

// NameClientConfiguration controls rename/retag operations
type NameClientConfiguration struct {
	TimeoutMS int `toml:"timeout_ms"` // Upper bound for a table write, including its rename and retag
}

// AdminConfiguration for the HTTP table surface
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Secret      string `toml:"secret"` // Empty disables authentication
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// Configuration is the main configuration structure
type Configuration struct {
	NodeID  uint64 `toml:"node_id"`
	DataDir string `toml:"data_dir"`

	Server     ServerConfiguration     `toml:"server"`
	Metadata   MetadataConfiguration   `toml:"metadata"`
	NameClient NameClientConfiguration `toml:"name_client"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	DataDirFlag    = flag.String("data-dir", "", "Data directory (overrides config)")
	NodeIDFlag     = flag.Uint64("node-id", 0, "Node ID (overrides config, 0=auto)")
	ServerNameFlag = flag.String("server-name", "", "Initial server name (overrides config)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
)

// Default configuration
var Config = &Configuration{
	NodeID:  0, // Auto-generate
	DataDir: "./marmot-servers-data",

	Server: ServerConfiguration{
		Tags: []string{"default"},
	},

	Metadata: MetadataConfiguration{
		Store:            MetadataPebble,
		PebbleCacheMB:    8,
		StatsIntervalSec: 15,
	},

	NameClient: NameClientConfiguration{
		TimeoutMS: 5000,
	},

	Admin: AdminConfiguration{
		Enabled:     true,
		BindAddress: "0.0.0.0",
		Port:        8086,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *DataDirFlag != "" {
		Config.DataDir = *DataDirFlag
	}
	if *NodeIDFlag != 0 {
		Config.NodeID = *NodeIDFlag
	}
	if *ServerNameFlag != "" {
		Config.Server.Name = *ServerNameFlag
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.NodeID == 0 {
		var err error
		Config.NodeID, err = generateNodeID()
		if err != nil {
			return fmt.Errorf("failed to generate node ID: %w", err)
		}
		log.Info().Uint64("node_id", Config.NodeID).Msg("Auto-generated node ID")
	}

	if Config.Server.Name == "" {
		Config.Server.Name = defaultServerName()
	}

	if err := os.MkdirAll(Config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// generateNodeID creates a unique node ID based on machine ID
func generateNodeID() (uint64, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// defaultServerName derives a legal server name from the hostname
func defaultServerName() string {
	hostname, err := os.Hostname()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get hostname, using generated server name")
		return fmt.Sprintf("server_%x", Config.NodeID&0xffffff)
	}
	return SanitizeName(hostname)
}

// SanitizeName replaces characters that are not legal in a server name
func SanitizeName(s string) string {
	out := []rune(s)
	for i, r := range out {
		if !document.ValidName(string(r)) {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "server"
	}
	return string(out)
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	switch Config.Metadata.Store {
	case MetadataMemory, MetadataPebble:
	default:
		return fmt.Errorf("invalid metadata store: %q", Config.Metadata.Store)
	}

	if Config.Metadata.Store == MetadataPebble && Config.Metadata.PebbleCacheMB < 1 {
		return fmt.Errorf("pebble cache must be >= 1 MB")
	}

	if Config.Metadata.StatsIntervalSec < 1 {
		return fmt.Errorf("metadata stats interval must be >= 1 second")
	}

	if !document.ValidName(Config.Server.Name) {
		return fmt.Errorf("invalid server name: %q", Config.Server.Name)
	}

	for _, tag := range Config.Server.Tags {
		if !document.ValidName(tag) {
			return fmt.Errorf("invalid server tag: %q", tag)
		}
	}

	if Config.NameClient.TimeoutMS < 1 {
		return fmt.Errorf("name client timeout must be >= 1ms")
	}

	if Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %q", Config.Logging.Format)
	}

	return nil
}

// GetMetadataPath returns the directory of the pebble metadata store
func GetMetadataPath() string {
	return path.Join(Config.DataDir, "metadata")
}

// IsAdminAuthEnabled reports whether admin requests need a secret
func IsAdminAuthEnabled() bool {
	return Config.Admin.Secret != ""
}
