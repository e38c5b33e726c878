// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig holds the full application configuration, including runtime
// updatable LLM settings persisted to config.json.
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DBPath    string `json:"db_path"`
	DebugMode bool   `json:"debug_mode"`

	// Content repository (headless CMS) access
	CMSBaseURL    string `json:"cms_base_url"`
	CMSBucketSlug string `json:"cms_bucket_slug"`
	CMSReadKey    string `json:"cms_read_key,omitempty"`

	// Auth token signing
	AuthSecret string `json:"auth_secret,omitempty"`

	// LLM provider settings
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// Config is the base configuration loaded from the environment.
type Config struct {
	Port          string
	OpenAIAPIKey  string
	DataDir       string
	LogDir        string
	DBPath        string
	DebugMode     bool
	CMSBaseURL    string
	CMSBucketSlug string
	CMSReadKey    string
	AuthSecret    string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:          getEnv("PORT", "8080"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		DataDir:       getEnvPath("DATA_DIR", "data"),
		LogDir:        getEnvPath("LOG_DIR", "logs"),
		DBPath:        getEnv("DB_PATH", filepath.Join("data", "claritutor.db")),
		DebugMode:     getEnvBool("DEBUG_MODE", true),
		CMSBaseURL:    getEnv("CMS_BASE_URL", "https://api.cosmicjs.com"),
		CMSBucketSlug: getEnv("CMS_BUCKET_SLUG", ""),
		CMSReadKey:    getEnv("CMS_READ_KEY", ""),
		AuthSecret:    getEnv("AUTH_SECRET", ""),
	}

	if config.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY not set; tutoring chat stays disabled until configured in settings")
	}
	if config.CMSBucketSlug == "" {
		log.Println("warning: CMS_BUCKET_SLUG not set; content pages will render empty")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// InitConfig initializes the config manager, merging any previously saved
// config.json on top of the environment.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:          baseConfig.Port,
		DataDir:       baseConfig.DataDir,
		LogDir:        baseConfig.LogDir,
		DBPath:        baseConfig.DBPath,
		DebugMode:     baseConfig.DebugMode,
		CMSBaseURL:    baseConfig.CMSBaseURL,
		CMSBucketSlug: baseConfig.CMSBucketSlug,
		CMSReadKey:    baseConfig.CMSReadKey,
		AuthSecret:    baseConfig.AuthSecret,
		LLMProvider:   "openai",
		LLMConfig: map[string]string{
			"api_key":       baseConfig.OpenAIAPIKey,
			"default_model": "gpt-4-turbo-preview",
		},
	}

	// Merge saved LLM settings, keeping the freshest base config.
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DBPath = baseConfig.DBPath
				savedConfig.DebugMode = baseConfig.DebugMode
				savedConfig.CMSBaseURL = baseConfig.CMSBaseURL
				savedConfig.CMSBucketSlug = baseConfig.CMSBucketSlug
				savedConfig.CMSReadKey = baseConfig.CMSReadKey
				savedConfig.AuthSecret = baseConfig.AuthSecret

				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.OpenAIAPIKey
				}

				currentConfig = &savedConfig
			}
		}
	}

	return SaveConfig()
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return &AppConfig{
			Port:          baseConfig.Port,
			DataDir:       baseConfig.DataDir,
			LogDir:        baseConfig.LogDir,
			DBPath:        baseConfig.DBPath,
			DebugMode:     baseConfig.DebugMode,
			CMSBaseURL:    baseConfig.CMSBaseURL,
			CMSBucketSlug: baseConfig.CMSBucketSlug,
			CMSReadKey:    baseConfig.CMSReadKey,
			AuthSecret:    baseConfig.AuthSecret,
			LLMProvider:   "openai",
			LLMConfig: map[string]string{
				"api_key": baseConfig.OpenAIAPIKey,
			},
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig updates the active provider settings and persists them.
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("config system not initialized")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return SaveConfig()
}

// SaveConfig writes the current configuration to config.json.
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("no config to save")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
