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
	"net/http/httptest"
	"testing"
	"time"
)

func rsaSignerForTest(t *testing.T) (*Signer, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
	s, err := newSignerFromPEM("test-key-id", pemData, "test")
	if err != nil {
		t.Fatal(err)
	}
	return s, key
}

func ed25519SignerForTest(t *testing.T) (*Signer, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	s, err := newSignerFromPEM("test-key-id", pemData, "test")
	if err != nil {
		t.Fatal(err)
	}
	return s, pub
}

func TestSignRequestRSA(t *testing.T) {
	s, key := rsaSignerForTest(t)
	fixed := time.UnixMilli(1700000000000)
	s.nowFunc = func() time.Time { return fixed }

	req := httptest.NewRequest("POST", "https://api.example.com/trade-api/v2/portfolio/orders", nil)
	if err := s.SignRequest(req); err != nil {
		t.Fatalf("SignRequest: %v", err)
	}

	if got := req.Header.Get("KALSHI-ACCESS-KEY"); got != "test-key-id" {
		t.Errorf("access key header = %q", got)
	}
	ts := req.Header.Get("KALSHI-ACCESS-TIMESTAMP")
	if ts != "1700000000000" {
		t.Errorf("timestamp header = %q", ts)
	}

	sig, err := base64.StdEncoding.DecodeString(req.Header.Get("KALSHI-ACCESS-SIGNATURE"))
	if err != nil {
		t.Fatalf("signature not base64: %v", err)
	}

	message := ts + "POST" + "/trade-api/v2/portfolio/orders"
	hash := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestSignStripsQueryString(t *testing.T) {
	s, pub := ed25519SignerForTest(t)
	fixed := time.UnixMilli(1700000000000)
	s.nowFunc = func() time.Time { return fixed }

	ts, sig, err := s.sign("GET", "/trade-api/v2/markets?limit=1000&series_ticker=KXNCAAMBTOTAL")
	if err != nil {
		t.Fatal(err)
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte(ts + "GET" + "/trade-api/v2/markets")
	if !ed25519.Verify(pub, message, raw) {
		t.Error("signature should cover the path without the query string")
	}
}

func TestHeadersForWebSocketDial(t *testing.T) {
	s, _ := rsaSignerForTest(t)
	h := s.Headers("GET", "/trade-api/ws/v2")
	for _, name := range []string{"KALSHI-ACCESS-KEY", "KALSHI-ACCESS-SIGNATURE", "KALSHI-ACCESS-TIMESTAMP"} {
		if h.Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
}

func TestNilSignerIsNoop(t *testing.T) {
	var s *Signer
	req := httptest.NewRequest("GET", "https://api.example.com/exchange/status", nil)
	if err := s.SignRequest(req); err != nil {
		t.Fatalf("nil signer should be a no-op, got %v", err)
	}
	if s.Enabled() {
		t.Error("nil signer should report disabled")
	}
	if s.Headers("GET", "/x") != nil {
		t.Error("nil signer should return nil headers")
	}
}
