// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	EnvHome         = "REVID_HOME"
	EnvConfigFile   = "REVID_CONFIG"
	EnvMaxSentences = "REVID_MAX_SENTENCES"
	EnvPort         = "PORT"
	EnvLogFile      = "LOG_FILE"
	EnvLogLevel     = "LOG_LEVEL"
	EnvDebugMode    = "DEBUG_MODE"
)

// 默认值
const (
	DefaultHomeDirName  = ".revid_clone"
	DefaultPort         = "8080"
	DefaultLogLevel     = "info"
	DefaultMaxSentences = 10
	configFileName      = "config.yaml"
)

// Config 存储应用配置
type Config struct {
	Home         string `yaml:"home"`
	Port         string `yaml:"port"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
	DebugMode    bool   `yaml:"debug_mode"`
	MaxSentences int    `yaml:"max_sentences"`
}

// Load 依次合并默认值、YAML 配置文件与环境变量
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	cfg := defaults()

	path := getEnv(EnvConfigFile, "")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(getEnv(EnvHome, cfg.Home), configFileName)
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	home := DefaultHomeDirName
	if userHome, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(userHome, DefaultHomeDirName)
	}
	return &Config{
		Home:         home,
		Port:         DefaultPort,
		LogLevel:     DefaultLogLevel,
		MaxSentences: DefaultMaxSentences,
	}
}

// mergeFile overlays non-zero values from a YAML file. A missing file is
// only an error when its path was given explicitly.
func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fileCfg.Home != "" {
		c.Home = fileCfg.Home
	}
	if fileCfg.Port != "" {
		c.Port = fileCfg.Port
	}
	if fileCfg.LogFile != "" {
		c.LogFile = fileCfg.LogFile
	}
	if fileCfg.LogLevel != "" {
		c.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.MaxSentences != 0 {
		c.MaxSentences = fileCfg.MaxSentences
	}
	c.DebugMode = c.DebugMode || fileCfg.DebugMode
	return nil
}

func (c *Config) applyEnv() {
	c.Home = getEnv(EnvHome, c.Home)
	c.Port = getEnv(EnvPort, c.Port)
	c.LogFile = getEnv(EnvLogFile, c.LogFile)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.DebugMode = getEnvBool(EnvDebugMode, c.DebugMode)
	c.MaxSentences = getEnvInt(EnvMaxSentences, c.MaxSentences)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Home) == "" {
		return fmt.Errorf("%s must not be empty", EnvHome)
	}
	if c.MaxSentences <= 0 {
		return fmt.Errorf("max_sentences must be > 0, got %d", c.MaxSentences)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量，无法解析时返回默认值
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
