package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// SchedulerConfig controls the daily occurrence-processing trigger.
type SchedulerConfig struct {
	// CronSpec is the robfig/cron expression for the daily run.
	CronSpec string `mapstructure:"cron_spec" validate:"required"`

	// Timezone is the IANA zone the recipients' calendar days are
	// evaluated in.
	Timezone string `mapstructure:"timezone" validate:"required"`
}
