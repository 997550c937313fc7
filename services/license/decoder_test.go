package license

import (
	"bytes"
	"compress/zlib"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// privateEncrypt mirrors the issuer side: PKCS#1 v1.5 block type 01 padding
// followed by exponentiation with the private exponent. Long messages span
// multiple full blocks.
func privateEncrypt(t *testing.T, key *rsa.PrivateKey, msg []byte) string {
	t.Helper()

	k := key.Size()
	chunk := k - 11

	var out []byte
	for len(msg) > 0 {
		n := chunk
		if len(msg) < n {
			n = len(msg)
		}

		em := make([]byte, k)
		em[0] = 0x00
		em[1] = 0x01
		for i := 2; i < k-n-1; i++ {
			em[i] = 0xff
		}
		em[k-n-1] = 0x00
		copy(em[k-n:], msg[:n])

		m := new(big.Int).SetBytes(em)
		c := new(big.Int).Exp(m, key.D, key.N)
		out = append(out, c.FillBytes(make([]byte, k))...)

		msg = msg[n:]
	}

	return base64.StdEncoding.EncodeToString(out)
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestDecodeLegacyLicense(t *testing.T) {
	key := testKey(t)

	payload := `{
		"expiry": "2030-01-01",
		"type": "enterprise",
		"workspaces": ["*"],
		"apps": {"total": 5},
		"users": {"total": 25, "editor": "UNLIMITED", "viewer": 10},
		"features": {"oidc": true, "auditLogs": true}
	}`

	terms, err := Decode(privateEncrypt(t, key, []byte(payload)), &key.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "2030-01-01", terms.Expiry)
	require.Equal(t, TypeEnterprise, terms.Type)
	require.Equal(t, int64(5), terms.Apps.Total.Value())
	require.Equal(t, int64(25), terms.Users.Total.Value())
	require.True(t, terms.Users.Editors.IsUnlimited())
	require.Equal(t, int64(10), terms.Users.Viewers.Value())
	require.True(t, terms.Features.OIDC)
	require.True(t, terms.Features.AuditLogs)
	require.False(t, terms.Features.SAML)
}

func TestDecodeVersion2License(t *testing.T) {
	key := testKey(t)

	inner := `{"expiry": "2031-06-30", "type": "business", "users": {"total": "UNLIMITED"}}`
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte(inner))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	outer, err := json.Marshal(map[string]any{
		"version": 2,
		"payload": base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	require.NoError(t, err)

	terms, err := Decode(privateEncrypt(t, key, outer), &key.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "2031-06-30", terms.Expiry)
	require.Equal(t, TypeBusiness, terms.Type)
	require.True(t, terms.Users.Total.IsUnlimited())
}

func TestDecodeMultiBlock(t *testing.T) {
	key := testKey(t)

	// Force the payload past one RSA block.
	payload := `{"expiry": "2030-01-01", "type": "trial", "meta": {"note": "` +
		strings.Repeat("a", 400) + `"}}`

	terms, err := Decode(privateEncrypt(t, key, []byte(payload)), &key.PublicKey)
	require.NoError(t, err)
	require.Equal(t, TypeTrial, terms.Type)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	key := testKey(t)

	outer := `{"version": 3, "payload": ""}`
	_, err := Decode(privateEncrypt(t, key, []byte(outer)), &key.PublicKey)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeNonIntegerVersion(t *testing.T) {
	// A well-formed envelope declaring a version this build cannot read is
	// unsupported, not malformed; malformed is reserved for broken JSON.
	key := testKey(t)

	outer := `{"version": "x", "payload": ""}`
	_, err := Decode(privateEncrypt(t, key, []byte(outer)), &key.PublicKey)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	require.NotErrorIs(t, err, ErrMalformedLicense)
}

func TestDecodeWrongKey(t *testing.T) {
	key := testKey(t)
	other := testKey(t)

	blob := privateEncrypt(t, key, []byte(`{"expiry": "2030-01-01"}`))
	_, err := Decode(blob, &other.PublicKey)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeNotBase64(t *testing.T) {
	key := testKey(t)
	_, err := Decode("not-a-license!!!", &key.PublicKey)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeTruncatedCiphertext(t *testing.T) {
	key := testKey(t)
	blob := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err := Decode(blob, &key.PublicKey)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeNonJSONPlaintext(t *testing.T) {
	key := testKey(t)
	_, err := Decode(privateEncrypt(t, key, []byte("plain text")), &key.PublicKey)
	require.ErrorIs(t, err, ErrMalformedLicense)
}

func TestLoadPublicKey(t *testing.T) {
	key := testKey(t)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}), 0o600))

	loaded, err := LoadPublicKey(path)
	require.NoError(t, err)
	require.Zero(t, loaded.N.Cmp(key.PublicKey.N))

	_, err = LoadPublicKey(filepath.Join(t.TempDir(), "missing.pem"))
	require.Error(t, err)
}
