package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"

	AuthFirebase = "firebase"
	AuthDev      = "dev"

	ProviderVertex    = "vertex"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	ProjectID       string
	Region          string
	Port            string
	LogLevel        string
	LogFormat       string
	AuthMode        string
	StoreBackend    string
	SQLitePath      string
	KMSKeyName      string
	LLMProvider     string
	LLMModel        string
	LLMAPIKey       string
	LLMAPIKeySecret string
	AITTL           time.Duration
	HistoryLimit    int
	SessionTTL      time.Duration
}

// New reads the configuration from the environment. A dotenv file (ENVFILE,
// or ./.env) is loaded first when present; real env vars win over it.
func New() *Config {
	loadDotEnv(os.Getenv("ENVFILE"))

	return &Config{
		ProjectID:       os.Getenv("PROJECTID"),
		Region:          getOr("REGION", "southamerica-east1"),
		Port:            getOr("PORT", "8080"),
		LogLevel:        os.Getenv("LOGLEVEL"),
		LogFormat:       getOr("LOGFORMAT", "json"),
		AuthMode:        getAuthMode(os.Getenv("AUTHMODE")),
		StoreBackend:    getStoreBackend(os.Getenv("STOREBACKEND")),
		SQLitePath:      getOr("SQLITEPATH", "aprendu.db"),
		KMSKeyName:      os.Getenv("KMSKEYNAME"),
		LLMProvider:     getProvider(os.Getenv("LLMPROVIDER")),
		LLMModel:        os.Getenv("LLMMODEL"),
		LLMAPIKey:       os.Getenv("LLMAPIKEY"),
		LLMAPIKeySecret: os.Getenv("LLMAPIKEYSECRET"),
		AITTL:           getDuration("AITTL", 7*24*time.Hour),
		HistoryLimit:    getInt("HISTORYLIMIT", 20),
		SessionTTL:      getDuration("SESSIONTTL", 2*time.Hour),
	}
}

func loadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	// godotenv.Load never overrides variables that are already set
	_ = godotenv.Load(path)
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getStoreBackend(v string) string {
	switch strings.ToLower(v) {
	case StoreSQLite:
		return StoreSQLite
	default: // "firestore"
		return StoreFirestore
	}
}

func getAuthMode(v string) string {
	switch strings.ToLower(v) {
	case AuthDev:
		return AuthDev
	default: // "firebase"
		return AuthFirebase
	}
}

func getProvider(v string) string {
	switch strings.ToLower(v) {
	case ProviderAnthropic:
		return ProviderAnthropic
	case ProviderOpenAI:
		return ProviderOpenAI
	default: // "vertex"
		return ProviderVertex
	}
}
