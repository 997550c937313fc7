package license

import (
	"bytes"
	"compress/zlib"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
)

var (
	// ErrInvalidSignature means the blob could not be decrypted with the
	// configured public key.
	ErrInvalidSignature = errors.New("license signature verification failed")
	// ErrMalformedLicense means the decrypted payload is not valid license JSON.
	ErrMalformedLicense = errors.New("malformed license payload")
	// ErrUnsupportedVersion means the payload declares a version this build
	// does not know how to decode.
	ErrUnsupportedVersion = errors.New("unsupported license version")
)

// LoadPublicKey reads an RSA public key in PEM form from path. The key is
// read at decode time so rotation is a file redeploy, not a protocol.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key in %s is not RSA", path)
	}
	return pub, nil
}

// envelope keeps the version field raw so that a non-integer version is
// reported as unsupported rather than as malformed JSON.
type envelope struct {
	Version json.RawMessage `json:"version"`
	Payload string          `json:"payload"`
}

// Decode verifies and decodes a signed license blob into Terms.
//
// The blob was encrypted with the issuer's private key; decryption with the
// paired public key doubles as the signature check. A payload without a
// version field is the legacy format and must keep decoding forever, since
// licenses issued under it remain valid. Version 2 nests a base64,
// zlib-deflated JSON document inside the outer structure.
func Decode(blob string, key *rsa.PublicKey) (*Terms, error) {
	if key == nil {
		return nil, ErrInvalidSignature
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	plaintext, err := publicDecrypt(key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var env envelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
	}

	if env.Version == nil {
		var terms Terms
		if err := json.Unmarshal(plaintext, &terms); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
		}
		return &terms, nil
	}

	var version int
	if err := json.Unmarshal(env.Version, &version); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, env.Version)
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	compressed, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
	}

	var terms Terms
	if err := json.Unmarshal(inflated, &terms); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLicense, err)
	}
	return &terms, nil
}

// publicDecrypt reverses an RSA private-key encryption: raw modular
// exponentiation with the public exponent, then PKCS#1 v1.5 block type 01
// unpadding. Blobs longer than the modulus are a sequence of full blocks.
func publicDecrypt(key *rsa.PublicKey, ciphertext []byte) ([]byte, error) {
	k := key.Size()
	if len(ciphertext) == 0 || len(ciphertext)%k != 0 {
		return nil, errors.New("ciphertext is not a whole number of RSA blocks")
	}

	e := big.NewInt(int64(key.E))
	var out []byte
	for off := 0; off < len(ciphertext); off += k {
		c := new(big.Int).SetBytes(ciphertext[off : off+k])
		if c.Cmp(key.N) >= 0 {
			return nil, errors.New("ciphertext block out of range")
		}

		em := new(big.Int).Exp(c, e, key.N).FillBytes(make([]byte, k))
		msg, err := unpadBlockType1(em)
		if err != nil {
			return nil, err
		}
		out = append(out, msg...)
	}
	return out, nil
}

func unpadBlockType1(em []byte) ([]byte, error) {
	if len(em) < 11 || em[0] != 0x00 || em[1] != 0x01 {
		return nil, errors.New("bad padding header")
	}

	i := 2
	for i < len(em) && em[i] == 0xff {
		i++
	}
	if i < 10 || i >= len(em) || em[i] != 0x00 {
		return nil, errors.New("bad padding body")
	}
	return em[i+1:], nil
}
