package kalshi_auth

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Signer implements Kalshi API request signing. The message signed is
// timestamp_ms + METHOD + path, where path excludes the query string but
// includes the API version prefix. Both the HTTP and WebSocket clients
// share one Signer.
//
// The signature algorithm follows the PEM key type: Ed25519 keys sign
// natively, RSA keys use RSA-PSS with SHA-256 and salt length equal to
// the digest length.
type Signer struct {
	keyID  string
	rsaKey *rsa.PrivateKey
	edKey  ed25519.PrivateKey

	// nowFunc is injectable for tests.
	nowFunc func() time.Time
}

// NewSignerFromFile loads a private key from a PEM file and returns a
// Signer. Returns (nil, nil) when keyID or keyFilePath is empty, allowing
// read-only commands to run without credentials.
func NewSignerFromFile(keyID, keyFilePath string) (*Signer, error) {
	if keyID == "" || keyFilePath == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", keyFilePath, err)
	}

	return newSignerFromPEM(keyID, pemData, keyFilePath)
}

func newSignerFromPEM(keyID string, pemData []byte, origin string) (*Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", origin)
	}

	s := &Signer{keyID: keyID, nowFunc: time.Now}

	// Try PKCS#8 first, fall back to PKCS#1.
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		switch k := parsed.(type) {
		case *rsa.PrivateKey:
			s.rsaKey = k
		case ed25519.PrivateKey:
			s.edKey = k
		default:
			return nil, fmt.Errorf("key in %s is neither RSA nor Ed25519 (got %T)", origin, parsed)
		}
	} else if pk1, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		s.rsaKey = pk1
	} else {
		return nil, fmt.Errorf("parse private key in %s: not PKCS#8 or PKCS#1", origin)
	}

	return s, nil
}

// SignRequest sets KALSHI-ACCESS-KEY, KALSHI-ACCESS-SIGNATURE, and
// KALSHI-ACCESS-TIMESTAMP headers on req. No-op when s is nil.
func (s *Signer) SignRequest(req *http.Request) error {
	if s == nil {
		return nil
	}

	ts, sig, err := s.sign(req.Method, req.URL.Path)
	if err != nil {
		return err
	}

	req.Header.Set("KALSHI-ACCESS-KEY", s.keyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// Headers returns auth headers suitable for a WebSocket dial. The method
// and path should match the WS endpoint (e.g. "GET", "/trade-api/ws/v2").
// Returns nil when s is nil.
func (s *Signer) Headers(method, path string) http.Header {
	if s == nil {
		return nil
	}

	ts, sig, err := s.sign(method, path)
	if err != nil {
		return nil
	}

	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", s.keyID)
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return h
}

// Enabled reports whether this signer has credentials loaded.
func (s *Signer) Enabled() bool {
	return s != nil && s.keyID != ""
}

func (s *Signer) sign(method, path string) (timestamp, signature string, err error) {
	ts := strconv.FormatInt(s.nowFunc().UnixMilli(), 10)

	// The exchange signs the path only, never the query string.
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	message := []byte(ts + strings.ToUpper(method) + path)

	var sig []byte
	if s.edKey != nil {
		sig = ed25519.Sign(s.edKey, message)
	} else {
		hash := sha256.Sum256(message)
		sig, err = rsa.SignPSS(rand.Reader, s.rsaKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
		if err != nil {
			return "", "", fmt.Errorf("rsa sign pss: %w", err)
		}
	}

	return ts, base64.StdEncoding.EncodeToString(sig), nil
}
