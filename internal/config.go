package internal

import (
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,required=true"`
	Port                 int           `env:"PORT,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	ChannelCacheSize     int           `env:"CHANNEL_CACHE_SIZE,required=true"`
	TypingTTL            time.Duration `env:"TYPING_TTL,required=true"`
	TypingSweepInterval  time.Duration `env:"TYPING_SWEEP_INTERVAL,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	HistoryLimit         *int          `env:"HISTORY_LIMIT"`

	// AuthSecret left empty disables token checks on the websocket
	// endpoint, for local development.
	AuthSecret string `env:"AUTH_SECRET"`
}
