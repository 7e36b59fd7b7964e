package providers

import (
	"crewboard/internal/structures"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.compression", true)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 8)
	v.SetDefault("cache.ttl", 6*time.Minute)
	v.SetDefault("stats.apiUrl", "https://api.github.com")
	v.SetDefault("stats.userAgent", "crewboard")
	v.SetDefault("stats.eventsPerPage", 100)
	v.SetDefault("stats.reposPerPage", 100)
	v.SetDefault("stats.requestTimeout", 10*time.Second)
	v.SetDefault("stats.refreshInterval", 6*time.Minute)
	v.SetDefault("presence.socketUrl", "wss://lanyard.vxnet.sh/socket")
	v.SetDefault("presence.apiUrl", "https://lanyard.vxnet.sh/v1")
	v.SetDefault("presence.reconnectDelay", time.Second)
	v.SetDefault("presence.requestTimeout", 10*time.Second)
	v.SetDefault("artwork.enabled", true)
	v.SetDefault("artwork.requestTimeout", 5*time.Second)
	v.SetDefault("artwork.maxBytes", 4<<20)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "CREWBOARD_LOG_LEVEL")
	v.BindEnv("webServer.port", "CREWBOARD_PORT")
	v.BindEnv("roster.path", "CREWBOARD_ROSTER_PATH")
	v.BindEnv("cache.enabled", "CREWBOARD_CACHE_ENABLED")
	v.BindEnv("cache.size", "CREWBOARD_CACHE_SIZE")
	v.BindEnv("cache.ttl", "CREWBOARD_CACHE_TTL")
	v.BindEnv("presence.socketUrl", "CREWBOARD_PRESENCE_SOCKET_URL")
	v.BindEnv("presence.apiUrl", "CREWBOARD_PRESENCE_API_URL")
	v.BindEnv("stats.apiUrl", "CREWBOARD_STATS_API_URL")

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

	if !filepath.IsAbs(conf.Roster.Path) {
		conf.Roster.Path = filepath.Join(filepath.Dir(flags.ConfigPath), conf.Roster.Path)
	}

	conf.AppName = "CrewBoard"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
