package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/server"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

const (
	// UserLookupBasic сопоставление исполнителей по email и логину.
	UserLookupBasic = "basic"
	// UserLookupFullName дополнительно сопоставляет по полному имени в проекте.
	UserLookupFullName = "full_name"
)

// StorageOpts параметры хранилища пользователей хост-системы.
type StorageOpts struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Config представляет конфигурацию приложения.
type Config struct {
	Connector   models.ValueSet        `mapstructure:"connector" validate:"required"`
	UserLookup  string                 `mapstructure:"user_lookup" validate:"omitempty,oneof=basic full_name"`
	Storage     StorageOpts            `mapstructure:"storage"`
	Logging     LoggingOpts            `mapstructure:"logging"`
	Report      services.ReportOpts    `mapstructure:"report"`
	TelegramBot services.TelegramOpts  `mapstructure:"telegram_bot"`
	DailyJob    services.DailyJobOpts  `mapstructure:"daily_job"`
	HttpServer  server.AdminServerOpts `mapstructure:"http_server"`
}

// Manager управляет конфигурацией приложения: загрузка, проверка и перечитывание при изменении файла.
type Manager struct {
	mu          sync.RWMutex
	cfg         *Config
	logger      *slog.Logger
	v           *viper.Viper
	subscribers []func(Config)
	validate    *validator.Validate
}

// Load однократно читает и проверяет конфигурацию без отслеживания изменений.
func Load(path string) (Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return decode(v, validator.New())
}

// NewManager создает новый менеджер конфигурации, загружая конфигурацию из указанного пути.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	m := &Manager{
		logger:   logger,
		v:        v,
		validate: validator.New(),
	}

	cfg, err := decode(v, m.validate)
	if err != nil {
		logger.Error("Validate config", "error", err)
		return nil, err
	}
	m.cfg = &cfg

	logger.Info("Config loaded", "path", path)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", "name", e.Name, "op", e.Op.String())

		newCfg, err := decode(v, m.validate)
		if err != nil {
			logger.Error("Failed to reload config", "error", err)
			return
		}

		m.mu.Lock()
		m.cfg = &newCfg
		subs := append([]func(Config){}, m.subscribers...)
		m.mu.Unlock()

		logger.Info("Config reloaded successfully")

		for _, fn := range subs {
			fn(newCfg)
		}
	})

	return m, nil
}

// Current возвращает текущую конфигурацию.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// OnChange регистрирует функцию обратного вызова, которая будет вызвана при изменении конфигурации.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("user_lookup", UserLookupBasic)
	v.SetDefault("storage.path", "data/users.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("report.save_dir", "reports")
	v.SetDefault("daily_job.hour", 9)
	v.SetDefault("http_server.address", ":8080")
	return v
}

func decode(v *viper.Viper, validate *validator.Validate) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
