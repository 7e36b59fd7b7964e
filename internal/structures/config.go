package structures

import "time"

type Server struct {
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"required|uint|min:1"`
	Compression bool   `yaml:"compression"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RosterConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// StatsConfig describes the upstream statistics API (GitHub REST).
type StatsConfig struct {
	APIURL          string        `yaml:"apiUrl" validate:"required"`
	UserAgent       string        `yaml:"userAgent"`
	EventsPerPage   int           `yaml:"eventsPerPage"`
	ReposPerPage    int           `yaml:"reposPerPage"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// PresenceConfig describes the presence push service (Lanyard).
type PresenceConfig struct {
	SocketURL      string        `yaml:"socketUrl" validate:"required"`
	APIURL         string        `yaml:"apiUrl" validate:"required"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type ArtworkConfig struct {
	Enabled        bool          `yaml:"enabled"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxBytes       int64         `yaml:"maxBytes"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Roster    RosterConfig   `yaml:"roster"`
	Stats     StatsConfig    `yaml:"stats"`
	Presence  PresenceConfig `yaml:"presence"`
	Artwork   ArtworkConfig  `yaml:"artwork"`
}
