package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type FileStoreConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

type MongoStoreConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type BlobStoreConfig struct {
	BaseURL string `yaml:"baseURL"`
	Token   string `yaml:"token"`
	Prefix  string `yaml:"prefix"`
}

type SQLStoreConfig struct {
	DSN string `yaml:"dsn"`
}

type StorageConfig struct {
	Driver  string           `yaml:"driver" validate:"required|in:memory,file,mongo,blob,sql"`
	Timeout time.Duration    `yaml:"timeout"`
	File    FileStoreConfig  `yaml:"file"`
	Mongo   MongoStoreConfig `yaml:"mongo"`
	Blob    BlobStoreConfig  `yaml:"blob"`
	SQL     SQLStoreConfig   `yaml:"sql"`
}

type IdentityConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"baseURL"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	TTL     time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Storage   StorageConfig  `yaml:"storage"`
	Identity  IdentityConfig `yaml:"identity"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
