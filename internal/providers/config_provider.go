package providers

import (
	"fmt"
	"gitviewer/internal/structures"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8080)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.timeout", "2s")
	v.SetDefault("identity.baseURL", "https://api.github.com")
	v.SetDefault("identity.timeout", "3s")
	v.SetDefault("identity.ttl", "1h")

	v.BindEnv("logger.level", "GV_LOG_LEVEL")
	v.BindEnv("storage.driver", "GV_STORAGE_DRIVER")
	v.BindEnv("storage.mongo.uri", "GV_MONGO_URI")
	v.BindEnv("storage.blob.token", "GV_BLOB_TOKEN")
	v.BindEnv("identity.token", "GV_GITHUB_TOKEN")
	v.BindEnv("cache.enabled", "GV_CACHE_ENABLED")
	v.BindEnv("cache.size", "GV_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "GitViewer"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
