package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Logger struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"`
}

type Telegram struct {
	Token         string `yaml:"token"`
	PracticeToken string `yaml:"practice_token"`
}

type Storage struct {
	PaymentsFile string `yaml:"payments_file"`
	ClientsFile  string `yaml:"clients_file"`
}

type Reminders struct {
	// Период проверки платежей, строка для time.ParseDuration ("12h").
	CheckPeriod string `yaml:"check_period"`
}

type AppConfig struct {
	Logger    Logger    `yaml:"log"`
	Telegram  Telegram  `yaml:"telegram"`
	Storage   Storage   `yaml:"storage"`
	Reminders Reminders `yaml:"reminders"`
}

// NewConfig читает конфигурацию из YAML-файла. Токены можно не хранить
// в файле: переменные окружения BOT_TOKEN и PRACTICE_BOT_TOKEN (в том
// числе из .env при локальной разработке) имеют приоритет.
func NewConfig(path string) (*AppConfig, error) {
	// .env нужен только локально, его отсутствие не ошибка
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var appConfig AppConfig
	if err := yaml.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		appConfig.Telegram.Token = token
	}
	if token := os.Getenv("PRACTICE_BOT_TOKEN"); token != "" {
		appConfig.Telegram.PracticeToken = token
	}

	if appConfig.Logger.Level == "" {
		appConfig.Logger.Level = "info"
	}
	if appConfig.Logger.Sink == "" {
		appConfig.Logger.Sink = "stdout"
	}
	if appConfig.Storage.PaymentsFile == "" {
		appConfig.Storage.PaymentsFile = "payments_data.json"
	}
	if appConfig.Storage.ClientsFile == "" {
		appConfig.Storage.ClientsFile = "clients_data.json"
	}
	if appConfig.Reminders.CheckPeriod == "" {
		appConfig.Reminders.CheckPeriod = "12h"
	}

	return &appConfig, nil
}

// Period возвращает период проверки платежей.
func (r Reminders) Period() (time.Duration, error) {
	period, err := time.ParseDuration(r.CheckPeriod)
	if err != nil {
		return 0, fmt.Errorf("некорректный период проверки %q: %w", r.CheckPeriod, err)
	}
	return period, nil
}
