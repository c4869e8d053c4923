package storage

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if os.Getenv("QUOTAFLOW_INTEGRATION") == "" {
		t.Skip("set QUOTAFLOW_INTEGRATION=1 to run container-backed tests")
	}
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port nat.Port) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("%s container unavailable: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func exercisePreferenceStore(t *testing.T, store PreferenceStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.GetPreference(ctx, DefaultOverrideKey)
	require.True(t, IsNotFound(err))

	require.NoError(t, store.SetPreference(ctx, DefaultOverrideKey, "first"))
	require.NoError(t, store.SetPreference(ctx, DefaultOverrideKey, "second"))
	got, err := store.GetPreference(ctx, DefaultOverrideKey)
	require.NoError(t, err)
	require.Equal(t, "second", got)

	require.NoError(t, store.DeletePreference(ctx, DefaultOverrideKey))
	require.True(t, IsNotFound(store.DeletePreference(ctx, DefaultOverrideKey)))
	require.NoError(t, store.Health(ctx))
}

func TestPostgresBackend_Integration(t *testing.T) {
	requireIntegration(t)
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "itdb",
			"POSTGRES_USER":     "ituser",
			"POSTGRES_PASSWORD": "itpass",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}, "5432/tcp")

	backend, err := NewPostgresBackend(fmt.Sprintf("postgres://ituser:itpass@%s/itdb?sslmode=disable", addr))
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(context.Background()))
	t.Cleanup(func() { _ = backend.Close() })

	exercisePreferenceStore(t, backend)
}

func TestMongoDBBackend_Integration(t *testing.T) {
	requireIntegration(t)
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}, "27017/tcp")

	backend, err := NewMongoDBBackend("mongodb://"+addr, "it_tests")
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(context.Background()))
	t.Cleanup(func() { _ = backend.Close() })

	exercisePreferenceStore(t, backend)
}

func TestUninitializedBackendsFailCleanly(t *testing.T) {
	ctx := context.Background()
	pg, err := NewPostgresBackend("postgres://u:p@localhost/db")
	require.NoError(t, err)
	_, err = pg.GetPreference(ctx, "k")
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, pg.Close())

	mg, err := NewMongoDBBackend("mongodb://localhost:27017", "")
	require.NoError(t, err)
	require.ErrorIs(t, mg.SetPreference(ctx, "k", "v"), errNotInitialized)
	require.NoError(t, mg.Close())
}
