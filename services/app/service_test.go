package app

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appforge-controlplane/pkg/repository"
	"appforge-controlplane/services/license"
	"appforge-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *license.Store) {
	t.Helper()

	db := testutil.NewTestDB(t, &App{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := license.NewStore()
	return &Service{
		node:      node,
		evaluator: license.NewEvaluator(store),
		repo:      repository.ProvideStore[App](db),
	}, store
}

func TestCreateApp(t *testing.T) {
	svc, _ := newTestService(t)

	app, err := svc.Create(context.Background(), "org1", "Order Tracker", "u1")
	require.NoError(t, err)
	require.Equal(t, "order-tracker", app.Slug)
	require.Equal(t, "org1", app.OrganizationID)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	_, err = svc.Create(context.Background(), "org1", "", "u1")
	require.Error(t, err)
}

func TestCreateAppLicenseCeiling(t *testing.T) {
	svc, store := newTestService(t)

	terms := &license.Terms{Expiry: "2030-01-01"}
	terms.Apps.Total = license.NewLimit(1)
	store.Replace(terms)

	_, err := svc.Create(context.Background(), "org1", "First", "u1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "org1", "Second", "u1")
	require.ErrorIs(t, err, ErrAppLimitReached)

	terms = &license.Terms{Expiry: "2030-01-01"}
	terms.Apps.Total = license.Unlimited()
	store.Replace(terms)

	_, err = svc.Create(context.Background(), "org1", "Second", "u1")
	require.NoError(t, err)
}
