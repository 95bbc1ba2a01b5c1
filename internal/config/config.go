package config

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Project  ProjectConfig  `mapstructure:"project"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Validate ValidateConfig `mapstructure:"validate"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Report   ReportConfig   `mapstructure:"report"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ProjectConfig struct {
	Root       string `mapstructure:"root"`
	MonitorDir string `mapstructure:"monitor_dir"`
	UnzipDir   string `mapstructure:"unzip_dir"`
}

type ScanConfig struct {
	IgnoreDirs  []string `mapstructure:"ignore_dirs"`
	IgnoreFiles []string `mapstructure:"ignore_files"`
	Extensions  []string `mapstructure:"extensions"`
}

type ValidateConfig struct {
	// Command is the dev server invocation used to validate fixes.
	Command []string `mapstructure:"command"`
	// GraceSeconds is how long the server gets to start before a fix is
	// declared validated.
	GraceSeconds int `mapstructure:"grace_seconds"`
}

type PipelineConfig struct {
	BranchPrefix string `mapstructure:"branch_prefix"`
}

type ReportConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	EnableGzip bool   `mapstructure:"enable_gzip"`
}

type WorkerConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
	QueueSize  int `mapstructure:"queue_size"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// Default returns a config with working defaults for a local run.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Project: ProjectConfig{
			Root:       ".",
			MonitorDir: "./monitored_folder",
			UnzipDir:   "./unzipped_projects",
		},
		Scan: ScanConfig{
			IgnoreDirs:  []string{"node_modules", ".git", "build", "dist", "__pycache__"},
			IgnoreFiles: []string{".DS_Store", "package-lock.json", "yarn.lock"},
			Extensions:  []string{".js", ".jsx", ".ts", ".tsx"},
		},
		Validate: ValidateConfig{
			Command:      []string{"npm", "run", "dev"},
			GraceSeconds: 5,
		},
		Pipeline: PipelineConfig{BranchPrefix: "fix"},
		Worker:   WorkerConfig{MaxWorkers: 0, QueueSize: 1024},
		Logger:   LoggerConfig{Level: "info", Format: "console", Output: "stderr"},
	}
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
