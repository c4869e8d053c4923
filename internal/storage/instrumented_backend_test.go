package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"quotaflow-go/internal/monitoring"

	"github.com/stretchr/testify/require"
)

type slowStore struct {
	PreferenceStore
	delay time.Duration
	err   error
}

func (s *slowStore) Name() string { return "slow" }

func (s *slowStore) GetPreference(ctx context.Context, key string) (string, error) {
	time.Sleep(s.delay)
	return "value", s.err
}

func TestInstrumentationRecordsSlowCalls(t *testing.T) {
	slow := monitoring.SlowQueries()
	slow.SetThreshold(5 * time.Millisecond)
	slow.Clear()
	t.Cleanup(func() {
		slow.SetThreshold(monitoring.SlowQueryThreshold)
		slow.Clear()
	})

	store := WithInstrumentation(&slowStore{delay: 10 * time.Millisecond, err: errors.New("boom")})
	_, err := store.GetPreference(context.Background(), "k")
	require.Error(t, err)

	fast := WithInstrumentation(&slowStore{})
	v, err := fast.GetPreference(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "value", v)

	recent := slow.Recent(0)
	require.Len(t, recent, 1)
	require.Equal(t, "get_preference", recent[0].Operation)
	require.Equal(t, "slow", recent[0].Backend)
	require.Equal(t, "boom", recent[0].Err)
}

func TestWithInstrumentationNil(t *testing.T) {
	require.Nil(t, WithInstrumentation(nil))
}
