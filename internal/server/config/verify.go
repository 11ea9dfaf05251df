package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
	"github.com/yndnr/ssess-go/pkg/crypto/adaptive"
	"github.com/yndnr/ssess-go/pkg/crypto/digest"
)

var (
	sameSites = []string{"lax", "strict", "none"}
)

// Verify validates the configuration. Every problem found is reported;
// the result is nil or a join of domain errors.
func Verify(cfg *ServerConfig) error {
	var errs []error
	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifySession(&cfg.Session)...)
	errs = append(errs, verifyCrypto(&cfg.Crypto)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	errs = append(errs, verifyMetrics(&cfg.Metrics)...)
	return errors.Join(errs...)
}

func invalid(key, format string, args ...any) error {
	return domain.ErrInvalidArgument.WithDetails(key + ": " + fmt.Sprintf(format, args...))
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, invalid("server.http.addr", "%v", err))
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, invalid("server.http", "tls_cert_file and tls_key_file must be set together"))
	}
	for key, path := range map[string]string{
		"server.http.tls_cert_file": cfg.HTTP.TLSCertFile,
		"server.http.tls_key_file":  cfg.HTTP.TLSKeyFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, invalid(key, "%v", err))
		}
	}

	if cfg.HTTP.ReadTimeout < 0 || cfg.HTTP.WriteTimeout < 0 || cfg.HTTP.IdleTimeout < 0 {
		errs = append(errs, invalid("server.http", "timeouts must not be negative"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, invalid("server.shutdown_timeout", "must be positive"))
	}
	return errs
}

func verifySession(cfg *SessionSection) []error {
	var errs []error

	if !validCookieName(cfg.CookieName) {
		errs = append(errs, invalid("session.cookie_name", "%q is not a valid cookie name", cfg.CookieName))
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if !slices.Contains(sameSites, sameSite) {
		errs = append(errs, invalid("session.cookie_same_site", "must be one of %v", sameSites))
	}
	if sameSite == "none" && !cfg.CookieSecure {
		errs = append(errs, invalid("session.cookie_same_site", "none requires cookie_secure"))
	}

	if !cfg.AllowInsecureSettings {
		if err := verifySecuritySettings(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.MaxLife <= 0 {
		errs = append(errs, invalid("session.max_life", "must be positive"))
	}
	if cfg.GCInterval < 0 {
		errs = append(errs, invalid("session.gc_interval", "must not be negative"))
	}
	if cfg.GCProbability < 0 || cfg.GCProbability > 1 {
		errs = append(errs, invalid("session.gc_probability", "must be between 0 and 1"))
	}
	if cfg.LockRetryInterval <= 0 {
		errs = append(errs, invalid("session.lock_retry_interval", "must be positive"))
	}
	if cfg.LockTimeout < 0 {
		errs = append(errs, invalid("session.lock_timeout", "must not be negative"))
	}
	if _, err := session.ParseReadFailurePolicy(cfg.DecryptFailure); err != nil {
		errs = append(errs, invalid("session.decrypt_failure", "must be propagate or empty, got %q", cfg.DecryptFailure))
	}
	if _, err := session.ParseReadFailurePolicy(cfg.FetchFailure); err != nil {
		errs = append(errs, invalid("session.fetch_failure", "must be propagate or empty, got %q", cfg.FetchFailure))
	}
	if cfg.MintRateLimit < 0 {
		errs = append(errs, invalid("session.mint_rate_limit", "must not be negative"))
	}
	if cfg.MintRateLimit > 0 && cfg.MintBurst < 1 {
		errs = append(errs, invalid("session.mint_burst", "must be at least 1 when mint_rate_limit is set"))
	}
	return errs
}

// verifySecuritySettings applies the same checks, in the same order, as
// session.NewHandler so a bad config fails at startup instead of per request.
func verifySecuritySettings(cfg *SessionSection) error {
	switch {
	case !cfg.UseCookies:
		return domain.ErrUseCookiesDisabled
	case !cfg.UseOnlyCookies:
		return domain.ErrUseOnlyCookiesDisabled
	case cfg.UseTransSID:
		return domain.ErrUseTransSIDEnabled
	case !cfg.UseStrictMode:
		return domain.ErrUseStrictModeDisabled
	}
	return nil
}

// validCookieName reports whether name is an RFC 6265 token.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return true
}

func verifyCrypto(cfg *CryptoSection) []error {
	var errs []error

	switch {
	case cfg.Secret == "" && cfg.SecretFile == "":
		errs = append(errs, domain.ErrMissingArgument.WithDetails("crypto.secret or crypto.secret_file is required"))
	case cfg.Secret != "" && cfg.SecretFile != "":
		errs = append(errs, invalid("crypto", "secret and secret_file are mutually exclusive"))
	case cfg.SecretFile != "":
		if _, err := os.Stat(cfg.SecretFile); err != nil {
			errs = append(errs, invalid("crypto.secret_file", "%v", err))
		}
	}

	if _, err := digest.ParseAlgorithm(cfg.Hash); err != nil {
		errs = append(errs, domain.ErrUnknownHashAlgorithm.WithDetails(cfg.Hash))
	}
	if _, err := adaptive.ParseCipherType(cfg.Cipher); err != nil {
		errs = append(errs, domain.ErrUnknownEncryptionAlgorithm.WithDetails(cfg.Cipher))
	}
	return errs
}

func verifyStorage(cfg *StorageSection) []error {
	var errs []error

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if !slices.Contains(storage.Backends(), backend) {
		errs = append(errs, domain.ErrUnknownBackend.WithDetails(cfg.Backend))
	}
	if backend == storage.BackendBadger && cfg.Dir == "" && !cfg.Badger.InMemory {
		errs = append(errs, domain.ErrMissingArgument.WithDetails("storage.dir is required for the badger backend"))
	}
	if backend == storage.BackendRedis && cfg.Redis.Addr == "" {
		errs = append(errs, domain.ErrMissingArgument.WithDetails("storage.redis.addr is required for the redis backend"))
	}
	if strings.ContainsAny(cfg.Prefix, `/\`) {
		errs = append(errs, invalid("storage.prefix", "must not contain path separators"))
	}
	if cfg.LockTTL < 0 {
		errs = append(errs, invalid("storage.lock_ttl", "must not be negative"))
	}
	if cfg.Badger.GCThreshold < 0 || cfg.Badger.GCThreshold >= 1 {
		errs = append(errs, invalid("storage.badger.gc_threshold", "must be in [0, 1)"))
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, invalid("storage.redis.db", "must not be negative"))
	}
	return errs
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, invalid("log.level", "must be debug, info, warn or error"))
	}
	if !logger.ValidFormat(cfg.Format) {
		errs = append(errs, invalid("log.format", "must be json, text or console"))
	}
	return errs
}

func verifyMetrics(cfg *MetricsSection) []error {
	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		return []error{invalid("metrics.path", "must start with /")}
	}
	return nil
}
