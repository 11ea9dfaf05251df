package config

import (
	"bytes"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/ssess-go/internal/core/crypt"
	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/storage"
	badgerstore "github.com/yndnr/ssess-go/internal/storage/badger"
	redisstore "github.com/yndnr/ssess-go/internal/storage/redis"
)

// LoadSecret returns the application secret from crypto.secret or the file
// named by crypto.secret_file. Trailing newlines in the file are dropped.
func (c CryptoSection) LoadSecret() ([]byte, error) {
	if c.Secret != "" {
		return []byte(c.Secret), nil
	}
	if c.SecretFile == "" {
		return nil, domain.ErrMissingArgument.WithDetails("crypto.secret or crypto.secret_file is required")
	}

	b, err := os.ReadFile(c.SecretFile)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("crypto.secret_file").WithCause(err)
	}
	b = bytes.TrimRight(b, "\r\n")
	if len(b) == 0 {
		return nil, domain.ErrMissingArgument.WithDetails("crypto.secret_file is empty")
	}
	return b, nil
}

// NewProvider builds the crypt provider described by the section.
func (c CryptoSection) NewProvider() (*crypt.Provider, error) {
	secret, err := c.LoadSecret()
	if err != nil {
		return nil, err
	}
	return crypt.NewFromNames(secret, c.Hash, c.Cipher)
}

// StorageConfig maps the section onto storage.Config. reg may be nil.
func (s StorageSection) StorageConfig(reg prometheus.Registerer) storage.Config {
	return storage.Config{
		Backend: s.Backend,
		Dir:     s.Dir,
		Prefix:  s.Prefix,
		LockTTL: s.LockTTL,
		Badger: badgerstore.Config{
			InMemory:         s.Badger.InMemory,
			GCInterval:       s.Badger.GCInterval,
			GCThreshold:      s.Badger.GCThreshold,
			CacheSize:        s.Badger.CacheSize,
			ValueLogFileSize: s.Badger.ValueLogFileSize,
			NumMemtables:     s.Badger.NumMemtables,
			SyncWrites:       s.Badger.SyncWrites,
		},
		Redis: redisstore.Config{
			Addr:        s.Redis.Addr,
			Username:    s.Redis.Username,
			Password:    s.Redis.Password,
			DB:          s.Redis.DB,
			DialTimeout: s.Redis.DialTimeout,
		},
		Registerer: reg,
	}
}

// HandlerOptions returns the session.Handler options implied by the section.
// The read failure policies must already have passed Verify.
func (s SessionSection) HandlerOptions() []session.Option {
	decrypt, _ := session.ParseReadFailurePolicy(s.DecryptFailure)
	fetch, _ := session.ParseReadFailurePolicy(s.FetchFailure)
	return []session.Option{
		session.WithInsecureSettingsAllowed(s.AllowInsecureSettings),
		session.WithLockRetryInterval(s.LockRetryInterval),
		session.WithLockTimeout(s.LockTimeout),
		session.WithDecryptFailurePolicy(decrypt),
		session.WithFetchFailurePolicy(fetch),
	}
}
