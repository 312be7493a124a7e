package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig 的 Driver 可為 "postgres" 或 "memory"（本機遊玩與測試用）
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type GameConfig struct {
	TotalRounds   int           `mapstructure:"total_rounds"`
	RoundDuration time.Duration `mapstructure:"round_duration"`
	AdvanceDelay  time.Duration `mapstructure:"advance_delay"`
	TimeoutGrace  time.Duration `mapstructure:"timeout_grace"`
	WatchdogGrace time.Duration `mapstructure:"watchdog_grace"`
	MinPlayers    int           `mapstructure:"min_players"`
	CodeAttempts  int           `mapstructure:"code_attempts"`
}

type RealtimeConfig struct {
	SendBuffer        int           `mapstructure:"send_buffer"`
	ReadLimit         int64         `mapstructure:"read_limit"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	MessagesPerSecond float64       `mapstructure:"messages_per_second"`
	Burst             int           `mapstructure:"burst"`
	StrokesPerSecond  float64       `mapstructure:"strokes_per_second"`
	StrokeBurst       int           `mapstructure:"stroke_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "sketch_club")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 240*time.Hour)

	v.SetDefault("game.total_rounds", 5)
	v.SetDefault("game.round_duration", 60*time.Second)
	v.SetDefault("game.advance_delay", 5*time.Second)
	v.SetDefault("game.timeout_grace", 2*time.Second)
	v.SetDefault("game.watchdog_grace", 5*time.Second)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.code_attempts", 5)

	v.SetDefault("realtime.send_buffer", 256)
	v.SetDefault("realtime.read_limit", 4096)
	v.SetDefault("realtime.pong_wait", 60*time.Second)
	v.SetDefault("realtime.ping_period", 54*time.Second)
	v.SetDefault("realtime.write_wait", 10*time.Second)
	v.SetDefault("realtime.messages_per_second", 30)
	v.SetDefault("realtime.burst", 60)
	v.SetDefault("realtime.strokes_per_second", 240)
	v.SetDefault("realtime.stroke_burst", 480)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load 讀取 config.yaml（可不存在），並允許以 SKETCH_ 開頭的環境變數覆寫
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./pkg/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SKETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
