package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type manager struct {
	mu     sync.RWMutex
	config *Config
	viper  *viper.Viper
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setupViper(configPath)

	if configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config := Default()
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	config := Default()
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) setupViper(configPath string) {
	if configPath != "" {
		m.viper.SetConfigFile(configPath)
	}

	m.viper.SetEnvPrefix("DEPSWEEP")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()
	m.setDefaults()
}

// setDefaults registers every key with viper. AutomaticEnv only matches
// DEPSWEEP_* variables for keys viper knows about, so without this the
// env overrides would be dead whenever no config file is loaded.
func (m *manager) setDefaults() {
	d := Default()
	m.viper.SetDefault("server.host", d.Server.Host)
	m.viper.SetDefault("server.port", d.Server.Port)
	m.viper.SetDefault("project.root", d.Project.Root)
	m.viper.SetDefault("project.monitor_dir", d.Project.MonitorDir)
	m.viper.SetDefault("project.unzip_dir", d.Project.UnzipDir)
	m.viper.SetDefault("scan.ignore_dirs", d.Scan.IgnoreDirs)
	m.viper.SetDefault("scan.ignore_files", d.Scan.IgnoreFiles)
	m.viper.SetDefault("scan.extensions", d.Scan.Extensions)
	m.viper.SetDefault("validate.command", d.Validate.Command)
	m.viper.SetDefault("validate.grace_seconds", d.Validate.GraceSeconds)
	m.viper.SetDefault("pipeline.branch_prefix", d.Pipeline.BranchPrefix)
	m.viper.SetDefault("report.endpoint", d.Report.Endpoint)
	m.viper.SetDefault("report.api_key", d.Report.APIKey)
	m.viper.SetDefault("report.enable_gzip", d.Report.EnableGzip)
	m.viper.SetDefault("worker.max_workers", d.Worker.MaxWorkers)
	m.viper.SetDefault("worker.queue_size", d.Worker.QueueSize)
	m.viper.SetDefault("logger.level", d.Logger.Level)
	m.viper.SetDefault("logger.format", d.Logger.Format)
	m.viper.SetDefault("logger.output", d.Logger.Output)
	m.viper.SetDefault("logger.time_format", d.Logger.TimeFormat)
}

func (m *manager) validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Validate.GraceSeconds <= 0 {
		return fmt.Errorf("grace_seconds must be positive")
	}

	if len(config.Validate.Command) == 0 {
		return fmt.Errorf("validate command cannot be empty")
	}

	if config.Pipeline.BranchPrefix == "" {
		return fmt.Errorf("branch_prefix cannot be empty")
	}

	if config.Worker.MaxWorkers < 0 {
		return fmt.Errorf("max_workers cannot be negative")
	}

	return nil
}
