// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	Port       string `json:"port"`
	DataDir    string `json:"data_dir"`
	StaticDir  string `json:"static_dir"`
	ProjectDir string `json:"project_dir"`
	DebugMode  bool   `json:"debug_mode"`

	// 自动保存间隔（秒），0表示关闭自动保存
	AutosaveSeconds int `json:"autosave_seconds"`
}

// Config 存储应用配置
type Config struct {
	Port            string
	DataDir         string
	StaticDir       string
	ProjectDir      string
	DebugMode       bool
	AutosaveSeconds int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		DataDir:         getEnvPath("DATA_DIR", "data"),
		StaticDir:       getEnvPath("STATIC_DIR", "static"),
		ProjectDir:      getEnvPath("PROJECT_DIR", "data/projects"),
		DebugMode:       getEnvBool("DEBUG_MODE", true),
		AutosaveSeconds: getEnvInt("AUTOSAVE_SECONDS", 30),
	}

	return config, nil
}

// AutosaveInterval 自动保存间隔
func (c *AppConfig) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveSeconds) * time.Second
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:            baseConfig.Port,
		DataDir:         baseConfig.DataDir,
		StaticDir:       baseConfig.StaticDir,
		ProjectDir:      baseConfig.ProjectDir,
		DebugMode:       baseConfig.DebugMode,
		AutosaveSeconds: baseConfig.AutosaveSeconds,
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 基础配置以环境变量为准，文件只保留可调项
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.StaticDir = baseConfig.StaticDir
				savedConfig.ProjectDir = baseConfig.ProjectDir
				savedConfig.DebugMode = baseConfig.DebugMode

				currentConfig = &savedConfig
			}
		}
	}

	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:            baseConfig.Port,
			DataDir:         baseConfig.DataDir,
			StaticDir:       baseConfig.StaticDir,
			ProjectDir:      baseConfig.ProjectDir,
			DebugMode:       baseConfig.DebugMode,
			AutosaveSeconds: baseConfig.AutosaveSeconds,
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
