package api

import (
	"os"
	"testing"
)

func TestInitTLSUnset(t *testing.T) {
	os.Unsetenv("CHATSTORY_TLS_CERT")
	os.Unsetenv("CHATSTORY_TLS_KEY")
	tlsConfig = nil

	InitTLS()
	if IsTLSEnabled() {
		t.Error("TLS should be disabled without cert env vars")
	}
	if LoadTLSConfig() != nil {
		t.Error("LoadTLSConfig should return nil when disabled")
	}
}

func TestInitTLSRequiresBothVars(t *testing.T) {
	os.Setenv("CHATSTORY_TLS_CERT", "/some/cert.pem")
	os.Unsetenv("CHATSTORY_TLS_KEY")
	defer os.Unsetenv("CHATSTORY_TLS_CERT")
	tlsConfig = nil

	InitTLS()
	if IsTLSEnabled() {
		t.Error("TLS should stay disabled with only a cert path")
	}
}

func TestLoadTLSConfigBadFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{CertFile: "/nonexistent/cert", KeyFile: "/nonexistent/key"})
	defer SetTLSConfigForTest(nil)

	if !IsTLSEnabled() {
		t.Fatal("TLS should report enabled with paths set")
	}
	// Unloadable certificate degrades to nil rather than panicking.
	if cfg := LoadTLSConfig(); cfg != nil {
		t.Error("expected nil config for unreadable certificate")
	}
}
