package config

import (
	"time"

	"github.com/yndnr/ssess-go/internal/core/crypt"
	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/storage"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 2 * time.Minute
	DefaultShutdownTimeout = 15 * time.Second

	DefaultCookieName     = "SSESS"
	DefaultCookiePath     = "/"
	DefaultCookieSameSite = "lax"
	DefaultMaxLife        = 1440 // seconds
	DefaultGCInterval     = time.Minute
	DefaultGCProbability  = 0.01
	DefaultDecryptFailure = "propagate"
	DefaultFetchFailure   = "propagate"
	DefaultMintRateLimit  = 10
	DefaultMintBurst      = 20

	DefaultBackend = storage.BackendFile

	DefaultRedisAddr = "127.0.0.1:6379"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Session: SessionSection{
			CookieName:        DefaultCookieName,
			CookiePath:        DefaultCookiePath,
			CookieHTTPOnly:    true,
			CookieSameSite:    DefaultCookieSameSite,
			UseStrictMode:     true,
			UseCookies:        true,
			UseOnlyCookies:    true,
			UseTransSID:       false,
			MaxLife:           DefaultMaxLife,
			GCInterval:        DefaultGCInterval,
			GCProbability:     DefaultGCProbability,
			LockRetryInterval: session.DefaultLockRetryInterval,
			LockTimeout:       session.DefaultLockTimeout,
			DecryptFailure:    DefaultDecryptFailure,
			FetchFailure:      DefaultFetchFailure,
			MintRateLimit:     DefaultMintRateLimit,
			MintBurst:         DefaultMintBurst,
		},
		Crypto: CryptoSection{
			Hash:   string(crypt.DefaultHash),
			Cipher: string(crypt.DefaultCipher),
		},
		Storage: StorageSection{
			Backend: DefaultBackend,
			Badger: BadgerConfig{
				GCInterval:       10 * time.Minute,
				GCThreshold:      0.5,
				CacheSize:        64 << 20,
				ValueLogFileSize: 256 << 20,
				NumMemtables:     2,
				SyncWrites:       true,
			},
			Redis: RedisConfig{
				Addr:        DefaultRedisAddr,
				DialTimeout: 5 * time.Second,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
