package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyPair(t *testing.T, dir, cn string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile,
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer}), 0o600))
	return certFile, keyFile
}

func commonName(t *testing.T, cfg *tls.Config) string {
	t.Helper()
	cert, err := cfg.GetCertificate(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func TestNewTLSConfig_reload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")

	cfg := newTLSConfig(ctx, certFile, keyFile)
	require.NotNil(t, cfg)
	assert.Equal(t, "first", commonName(t, cfg))

	writeKeyPair(t, dir, "second")
	assert.Eventually(t, func() bool {
		return commonName(t, cfg) == "second"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNewTLSConfig_renameRotation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")

	cfg := newTLSConfig(ctx, certFile, keyFile)
	require.NotNil(t, cfg)

	for i, cn := range []string{"second", "third"} {
		newCert, newKey := writeKeyPair(t, t.TempDir(), cn)
		require.NoError(t, os.Rename(newCert, certFile))
		require.NoError(t, os.Rename(newKey, keyFile))
		assert.Eventually(t, func() bool {
			return commonName(t, cfg) == cn
		}, 5*time.Second, 50*time.Millisecond, "rotation %d", i+1)
	}
}

func TestNewTLSConfig_missingFiles(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, newTLSConfig(context.Background(),
		filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")))
}
