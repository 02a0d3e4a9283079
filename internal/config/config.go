package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Import  ImportConfig  `toml:"import"`
	Listing ListingConfig `toml:"listing"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int    `toml:"port" validate:"min=1,max=65535"`
	DevMode bool   `toml:"dev_mode"`
	LogEnv  string `toml:"log_env" validate:"oneof=development production"`
	// StaticDir 前端构建产物目录；相对路径基于可执行文件目录，不存在时只提供 API
	StaticDir string `toml:"static_dir"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" validate:"required"`
}

// ImportConfig 导入配置
type ImportConfig struct {
	// DefaultCategory 导入时写入每行的 name_category
	DefaultCategory string `toml:"default_category"`
	MaxRows         int    `toml:"max_rows" validate:"gte=0"`
	MaxFileMB       int    `toml:"max_file_mb" validate:"min=1"`
	// RatePerMinute 导入接口每分钟允许的请求数
	RatePerMinute int `toml:"rate_per_minute" validate:"min=1"`
}

// ListingConfig 列表分页配置
type ListingConfig struct {
	DefaultLimit int `toml:"default_limit" validate:"min=1"`
	MaxLimit     int `toml:"max_limit" validate:"min=1,gtefield=DefaultLimit"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// 环境变量
const (
	EnvPort            = "TPM_PORT"
	EnvDataDir         = "TPM_DATA_DIR"
	EnvLogEnv          = "TPM_LOG_ENV"
	EnvDefaultCategory = "TPM_DEFAULT_CATEGORY"
)

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:      20262,
			DevMode:   false,
			LogEnv:    "development",
			StaticDir: "web",
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Import: ImportConfig{
			DefaultCategory: "Thiết bị sản xuất",
			MaxRows:         5000,
			MaxFileMB:       10,
			RatePerMinute:   6,
		},
		Listing: ListingConfig{
			DefaultLimit: 20,
			MaxLimit:     500,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFrom(exeDir)
}

// LoadFrom 从指定目录加载 config.toml 与 .env
//
// 顺序：默认值 → config.toml → 环境变量（.env 只补充尚未设置的变量）。
func LoadFrom(dir string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: filepath.Join(dir, "config.toml")}
	config := DefaultConfig()

	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, info, err
	}

	data, err := os.ReadFile(info.Path)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", info.Path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}

	if err := Validate(config); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv(EnvLogEnv); v != "" {
		config.Server.LogEnv = v
	}
	if v := os.Getenv(EnvDefaultCategory); v != "" {
		config.Import.DefaultCategory = v
	}
	return nil
}

// Validate 校验配置取值
func Validate(config *AppConfig) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到指定目录的 config.toml
func SaveConfig(dir string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// EnsureDataDir 确保数据目录存在；相对路径基于 baseDir
func EnsureDataDir(baseDir string, config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(baseDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "exports"), 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// MaxFileBytes 上传文件大小上限
func (c ImportConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) << 20
}
