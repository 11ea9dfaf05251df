package config

import "time"

// ServerConfig is the root configuration for ssess-server and ssess-cli.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server" json:"server" yaml:"server"`
	Session SessionSection `koanf:"session" json:"session" yaml:"session"`
	Crypto  CryptoSection  `koanf:"crypto" json:"crypto" yaml:"crypto"`
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig    `koanf:"http" json:"http" yaml:"http"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr" json:"addr" yaml:"addr"`
	TLSCertFile  string        `koanf:"tls_cert_file" json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile   string        `koanf:"tls_key_file" json:"tls_key_file" yaml:"tls_key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout"`
}

// TLSEnabled reports whether both TLS files are configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// SessionSection configures the cookie, the host security settings and the
// session lifecycle.
type SessionSection struct {
	CookieName     string `koanf:"cookie_name" json:"cookie_name" yaml:"cookie_name"`
	CookiePath     string `koanf:"cookie_path" json:"cookie_path" yaml:"cookie_path"`
	CookieDomain   string `koanf:"cookie_domain" json:"cookie_domain" yaml:"cookie_domain"`
	CookieSecure   bool   `koanf:"cookie_secure" json:"cookie_secure" yaml:"cookie_secure"`
	CookieHTTPOnly bool   `koanf:"cookie_http_only" json:"cookie_http_only" yaml:"cookie_http_only"`

	// CookieSameSite is lax, strict or none.
	CookieSameSite string `koanf:"cookie_same_site" json:"cookie_same_site" yaml:"cookie_same_site"`

	UseStrictMode         bool `koanf:"use_strict_mode" json:"use_strict_mode" yaml:"use_strict_mode"`
	UseCookies            bool `koanf:"use_cookies" json:"use_cookies" yaml:"use_cookies"`
	UseOnlyCookies        bool `koanf:"use_only_cookies" json:"use_only_cookies" yaml:"use_only_cookies"`
	UseTransSID           bool `koanf:"use_trans_sid" json:"use_trans_sid" yaml:"use_trans_sid"`
	AllowInsecureSettings bool `koanf:"allow_insecure_settings" json:"allow_insecure_settings" yaml:"allow_insecure_settings"`

	// MaxLife is the session lifetime in seconds since the last write.
	MaxLife float64 `koanf:"max_life" json:"max_life" yaml:"max_life"`

	// GCInterval is the period of the background sweeper. Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`

	// GCProbability is the chance (0 to 1) that a request runs GC inline.
	GCProbability float64 `koanf:"gc_probability" json:"gc_probability" yaml:"gc_probability"`

	LockRetryInterval time.Duration `koanf:"lock_retry_interval" json:"lock_retry_interval" yaml:"lock_retry_interval"`
	LockTimeout       time.Duration `koanf:"lock_timeout" json:"lock_timeout" yaml:"lock_timeout"`

	// DecryptFailure and FetchFailure are propagate or empty. They decide
	// whether an undecryptable or unfetchable stored session fails the
	// request or reads as empty.
	DecryptFailure string `koanf:"decrypt_failure" json:"decrypt_failure" yaml:"decrypt_failure"`
	FetchFailure   string `koanf:"fetch_failure" json:"fetch_failure" yaml:"fetch_failure"`

	// MintRateLimit is the number of new ids per second allowed per client
	// IP. Zero disables the limit.
	MintRateLimit float64 `koanf:"mint_rate_limit" json:"mint_rate_limit" yaml:"mint_rate_limit"`
	MintBurst     int     `koanf:"mint_burst" json:"mint_burst" yaml:"mint_burst"`
}

// CryptoSection configures the application secret and algorithms.
type CryptoSection struct {
	Secret     string `koanf:"secret" json:"secret" yaml:"secret"`
	SecretFile string `koanf:"secret_file" json:"secret_file" yaml:"secret_file"`
	Hash       string `koanf:"hash" json:"hash" yaml:"hash"`
	Cipher     string `koanf:"cipher" json:"cipher" yaml:"cipher"`
}

// StorageSection configures the session backend.
type StorageSection struct {
	Backend string        `koanf:"backend" json:"backend" yaml:"backend"`
	Dir     string        `koanf:"dir" json:"dir" yaml:"dir"`
	Prefix  string        `koanf:"prefix" json:"prefix" yaml:"prefix"`
	LockTTL time.Duration `koanf:"lock_ttl" json:"lock_ttl" yaml:"lock_ttl"`
	Badger  BadgerConfig  `koanf:"badger" json:"badger" yaml:"badger"`
	Redis   RedisConfig   `koanf:"redis" json:"redis" yaml:"redis"`
}

// BadgerConfig tunes the badger backend.
type BadgerConfig struct {
	InMemory         bool          `koanf:"in_memory" json:"in_memory" yaml:"in_memory"`
	GCInterval       time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size" json:"cache_size" yaml:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size" json:"value_log_file_size" yaml:"value_log_file_size"`
	NumMemtables     int           `koanf:"num_memtables" json:"num_memtables" yaml:"num_memtables"`
	SyncWrites       bool          `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
}

// RedisConfig configures the redis backend connection.
type RedisConfig struct {
	Addr        string        `koanf:"addr" json:"addr" yaml:"addr"`
	Username    string        `koanf:"username" json:"username" yaml:"username"`
	Password    string        `koanf:"password" json:"password" yaml:"password"`
	DB          int           `koanf:"db" json:"db" yaml:"db"`
	DialTimeout time.Duration `koanf:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" json:"path" yaml:"path"`
}
