package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/agenttrail/internal/config"
)

// Certificate file names inside a [server.tls] dir.
const (
	caCertName = "tls_ca.crt"
	certName   = "tls.crt"
	keyName    = "tls.key"
)

var versionNames = map[string]uint16{
	"1.2":    tls.VersionTLS12,
	"tls1.2": tls.VersionTLS12,
	"1.3":    tls.VersionTLS13,
	"tls1.3": tls.VersionTLS13,
}

// versionOr maps a config string to a TLS version constant, falling
// back to def for empty or unknown values.
func versionOr(name string, def uint16) uint16 {
	if v, ok := versionNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v
	}
	return def
}

// SetupTLS builds the server-side TLS configuration from [server.tls].
// It returns (nil, nil) when TLS is disabled so callers can hand the
// result straight to http.Server.
func SetupTLS(server config.ServerConfig) (*tls.Config, error) {
	t := server.TLS
	if t == nil || !t.Enabled {
		return nil, nil
	}

	certPath, keyPath, err := certSource(t)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		GetCertificate: reloadingCert(certPath, keyPath),
		MinVersion:     versionOr(server.TLSMinVersion, tls.VersionTLS13),
		MaxVersion:     versionOr(server.TLSMaxVersion, tls.VersionTLS13),
	}, nil
}

// certSource decides where the certificate comes from. Explicit files
// win; otherwise the configured directory is used, generating a
// self-signed pair on first start when auto_generate is set.
func certSource(t *config.TLSConfig) (certPath, keyPath string, err error) {
	if t.CertFile != "" && t.KeyFile != "" {
		return t.CertFile, t.KeyFile, nil
	}
	if t.Dir == "" {
		return "", "", errors.New("TLS enabled but no certificate files or directory configured")
	}
	certPath = filepath.Join(t.Dir, certName)
	keyPath = filepath.Join(t.Dir, keyName)
	if t.AutoGenerate && !bothExist(certPath, keyPath) {
		if err := generateInto(t, t.Dir); err != nil {
			return "", "", fmt.Errorf("certificate generation failed: %w", err)
		}
	}
	return certPath, keyPath, nil
}

// reloadingCert re-reads the key pair on every handshake so rotated
// certificates are picked up without a restart.
func reloadingCert(certPath, keyPath string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	dir := filepath.Dir(certPath)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		certPEM, err := readWithin(dir, certPath)
		if err != nil {
			return nil, err
		}
		keyPEM, err := readWithin(dir, keyPath)
		if err != nil {
			return nil, err
		}
		pair, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, err
		}
		return &pair, nil
	}
}

// readWithin refuses paths that escape the certificate directory.
func readWithin(dir, path string) ([]byte, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.New("certificate path escapes its directory")
	}
	return os.ReadFile(abs)
}

func bothExist(certPath, keyPath string) bool {
	if _, err := os.Stat(certPath); err != nil {
		return false
	}
	_, err := os.Stat(keyPath)
	return err == nil
}

// generateInto writes a fresh self-signed pair honoring the auto_gen
// overrides from the config file.
func generateInto(t *config.TLSConfig, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ag := t.AutoGen
	if ag == nil {
		ag = &config.AutoGenTLS{}
	}

	opts := CertConfig{
		CommonName:   ag.CommonName,
		Organization: ag.Organization,
		DNSNames:     ag.DNSNames,
		IPAddresses:  ag.IPAddresses,
		CertPath:     filepath.Join(dir, certName),
		KeyPath:      filepath.Join(dir, keyName),
		CACertPath:   filepath.Join(dir, caCertName),
	}
	if opts.CommonName == "" {
		opts.CommonName = "localhost"
	}
	if opts.Organization == "" {
		opts.Organization = "agenttrail"
	}
	if len(opts.DNSNames) == 0 {
		opts.DNSNames = []string{"localhost", "127.0.0.1"}
	}
	if len(opts.IPAddresses) == 0 {
		opts.IPAddresses = []string{"127.0.0.1"}
	}
	days := ag.ValidDays
	if days <= 0 {
		days = 365 * 5
	}
	opts.NotAfter = time.Now().AddDate(0, 0, days)

	return GenerateSelfSignedCert(opts)
}
