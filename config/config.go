package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Длительности окон диспута. Ноль означает, что фаза продвигается
	// только вручную или отдельной задачей.
	DisputeRegistrationWindow time.Duration
	DisputeBattleWindow       time.Duration

	// Период тика исполнителя отложенных задач.
	SchedulerInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	registrationHours, err := hoursEnv("DISPUTE_REGISTRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}
	battleHours, err := hoursEnv("DISPUTE_BATTLE_HOURS", 72)
	if err != nil {
		return nil, err
	}

	schedulerInterval := 5 * time.Minute
	if intervalStr := os.Getenv("SCHEDULER_INTERVAL"); intervalStr != "" {
		schedulerInterval, err = time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL environment variable: %w", err)
		}
		if schedulerInterval <= 0 {
			return nil, fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %v", schedulerInterval)
		}
	}

	cfg := &Config{
		DatabaseURL:               dbURL,
		JWTSecretKey:              jwtKey,
		ServerPort:                port,
		DisputeRegistrationWindow: registrationHours,
		DisputeBattleWindow:       battleHours,
		SchedulerInterval:         schedulerInterval,
		R2AccountID:               os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:             os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:         os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:              os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:           os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// hoursEnv читает длительность окна в часах; 0 — допустимое значение,
// отключающее автоматическое продвижение фазы.
func hoursEnv(name string, defaultHours int) (time.Duration, error) {
	valueStr := os.Getenv(name)
	if valueStr == "" {
		return time.Duration(defaultHours) * time.Hour, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", name, value)
	}
	return time.Duration(value) * time.Hour, nil
}
