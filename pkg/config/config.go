package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Persona   PersonaConfig   `mapstructure:"persona"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Bot       BotConfig       `mapstructure:"bot"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type OpenAIConfig struct {
	APIKey               string        `mapstructure:"api_key"`
	Model                string        `mapstructure:"model"`
	Temperature          float64       `mapstructure:"temperature"`
	ProactiveTemperature float64       `mapstructure:"proactive_temperature"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	UsePostgres bool   `mapstructure:"use_postgres"`
	DataDir     string `mapstructure:"data_dir"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
}

type PersonaConfig struct {
	File string `mapstructure:"file"`
}

type SchedulerConfig struct {
	Timezone     string        `mapstructure:"timezone"`
	DailyHour    int           `mapstructure:"daily_hour"`
	DailyMinute  int           `mapstructure:"daily_minute"`
	WindowStart  int           `mapstructure:"window_start"`
	WindowEnd    int           `mapstructure:"window_end"`
	RandomCount  int           `mapstructure:"random_count"`
	Workers      int           `mapstructure:"workers"`
	WelcomeDelay time.Duration `mapstructure:"welcome_delay"`
	ReplanCron   string        `mapstructure:"replan_cron"`
}

type BotConfig struct {
	ReplyPause     time.Duration `mapstructure:"reply_pause"`
	ProactivePause time.Duration `mapstructure:"proactive_pause"`
}

func parseDatabaseURL(dbURL string) (StorageConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return StorageConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return StorageConfig{
		UsePostgres: true,
		Host:        u.Hostname(),
		Port:        port,
		User:        u.User.Username(),
		Password:    password,
		DBName:      dbName,
		SSLMode:     "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("openai.model", "ft:gpt-4o-mini-2024-07-18:personal::BPVGSxsm")
	v.SetDefault("openai.temperature", 0.85)
	v.SetDefault("openai.proactive_temperature", 0.9)
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("storage.use_postgres", false)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.host", "localhost")
	v.SetDefault("storage.port", 5432)
	v.SetDefault("storage.user", "postgres")
	v.SetDefault("storage.sslmode", "disable")
	v.SetDefault("persona.file", "persona.txt")
	v.SetDefault("scheduler.timezone", "Asia/Shanghai")
	v.SetDefault("scheduler.daily_hour", 19)
	v.SetDefault("scheduler.daily_minute", 20)
	v.SetDefault("scheduler.window_start", 8)
	v.SetDefault("scheduler.window_end", 21)
	v.SetDefault("scheduler.random_count", 3)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.welcome_delay", "1m")
	v.SetDefault("scheduler.replan_cron", "5 0 * * *")
	v.SetDefault("bot.reply_pause", "300ms")
	v.SetDefault("bot.proactive_pause", "500ms")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Storage = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

// LoadPersona reads the persona prompt prepended to every fresh
// conversation record.
func (c *Config) LoadPersona() (string, error) {
	data, err := os.ReadFile(c.Persona.File)
	if err != nil {
		return "", fmt.Errorf("read persona file: %w", err)
	}
	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", c.Persona.File)
	}
	return persona, nil
}
