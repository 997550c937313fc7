package license

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/repository"
	"appforge-controlplane/services/testutil"
)

func writePublicKey(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}), 0o600))
	return path
}

func newTestService(t *testing.T, keyPath string) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &License{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.License.PublicKeyPath = keyPath

	store := NewStore()
	return &Service{
		db:     db,
		node:   node,
		config: cfg,
		repo:   repository.ProvideStore[License](db),
		store:  store,
		eval:   NewEvaluator(store),
	}
}

func TestActivatePersistsAndSwaps(t *testing.T) {
	key := testKey(t)
	svc := newTestService(t, writePublicKey(t, key))
	ctx := context.Background()

	first := privateEncrypt(t, key, []byte(`{"expiry": "2030-01-01", "type": "trial"}`))
	terms, err := svc.Activate(ctx, first, "admin-1")
	require.NoError(t, err)
	require.Equal(t, TypeTrial, terms.Type)
	require.Same(t, terms, svc.Terms())

	second := privateEncrypt(t, key, []byte(`{"expiry": "2031-01-01", "type": "enterprise"}`))
	terms, err = svc.Activate(ctx, second, "admin-1")
	require.NoError(t, err)
	require.Equal(t, TypeEnterprise, svc.Terms().Type)

	var rows []License
	require.NoError(t, svc.db.Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 2)

	active := 0
	for _, row := range rows {
		if row.Status == StatusActive {
			active++
			require.Equal(t, second, row.LicenseKey)
		} else {
			require.Equal(t, StatusSuperseded, row.Status)
		}
	}
	require.Equal(t, 1, active)
}

func TestActivateRejectionKeepsCurrentTerms(t *testing.T) {
	key := testKey(t)
	svc := newTestService(t, writePublicKey(t, key))
	ctx := context.Background()

	good := privateEncrypt(t, key, []byte(`{"expiry": "2030-01-01", "type": "business"}`))
	_, err := svc.Activate(ctx, good, "admin-1")
	require.NoError(t, err)
	gen := svc.store.Generation()

	_, err = svc.Activate(ctx, "garbage", "admin-1")
	require.ErrorIs(t, err, ErrInvalidSignature)

	other := testKey(t)
	_, err = svc.Activate(ctx, privateEncrypt(t, other, []byte(`{}`)), "admin-1")
	require.ErrorIs(t, err, ErrInvalidSignature)

	unsupported := privateEncrypt(t, key, []byte(`{"version": 9, "payload": ""}`))
	_, err = svc.Activate(ctx, unsupported, "admin-1")
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	nonInteger := privateEncrypt(t, key, []byte(`{"version": "x", "payload": ""}`))
	_, err = svc.Activate(ctx, nonInteger, "admin-1")
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	require.Equal(t, TypeBusiness, svc.Terms().Type)
	require.Equal(t, gen, svc.store.Generation())
}

func TestRestoreFromStoredLicense(t *testing.T) {
	key := testKey(t)
	keyPath := writePublicKey(t, key)
	svc := newTestService(t, keyPath)
	ctx := context.Background()

	blob := privateEncrypt(t, key, []byte(`{"expiry": "2030-01-01", "type": "enterprise"}`))
	_, err := svc.Activate(ctx, blob, "admin-1")
	require.NoError(t, err)

	// A fresh process sees only the database.
	restored := &Service{
		db:     svc.db,
		node:   svc.node,
		config: svc.config,
		repo:   repository.ProvideStore[License](svc.db),
		store:  NewStore(),
	}
	restored.eval = NewEvaluator(restored.store)

	restored.Restore(ctx)
	require.NotNil(t, restored.Terms())
	require.Equal(t, TypeEnterprise, restored.Terms().Type)
}

func TestRestoreWithoutStoredLicense(t *testing.T) {
	key := testKey(t)
	svc := newTestService(t, writePublicKey(t, key))

	svc.Restore(context.Background())
	require.Nil(t, svc.Terms())
}
