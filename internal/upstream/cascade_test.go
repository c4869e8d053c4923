package upstream

import (
	"context"
	"testing"

	"quotaflow-go/internal/credential"
	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/events"

	"github.com/stretchr/testify/require"
)

func tier(name string, op *scriptedOp, built *int) Tier[string] {
	return Tier[string]{
		Name: name,
		Factory: func() Operation[string] {
			if built != nil {
				*built++
			}
			return op.op
		},
	}
}

func TestCascadeShortCircuitsOnSuccess(t *testing.T) {
	pool := newCountingPool("K1", "K2")
	a, b := succeedWith("from-a"), succeedWith("from-b")
	var builtB int

	got, err := Cascade(context.Background(), pool, []Tier[string]{
		tier("enhanced", a, nil),
		tier("standard", b, &builtB),
	})
	require.NoError(t, err)
	require.Equal(t, "from-a", got)
	require.Equal(t, 1, a.count())
	require.Zero(t, builtB)
	require.Zero(t, b.count())
}

func TestCascadeFallsBackOnTerminalQuota(t *testing.T) {
	pool := newCountingPool("K1", "K2")
	a := alwaysFail(errQuota)
	b := succeedWith("from-b")
	hub := events.NewHub()
	var fallbacks []FallbackEvent
	hub.Subscribe(events.TopicTierFallback, func(_ context.Context, ev events.Event) {
		fallbacks = append(fallbacks, ev.Payload.(FallbackEvent))
	})

	got, err := Cascade(context.Background(), pool, []Tier[string]{
		tier("enhanced", a, nil),
		tier("standard", b, nil),
	}, WithSleeper((&recordingSleeper{}).Sleep), WithPublisher(hub), WithFeature("summarize"))
	require.NoError(t, err)
	require.Equal(t, "from-b", got)
	require.Equal(t, pool.MaxAttempts(), a.count())
	require.Equal(t, 1, b.count())
	require.Len(t, fallbacks, 1)
	require.Equal(t, "enhanced", fallbacks[0].From)
	require.Equal(t, "standard", fallbacks[0].To)
	require.Equal(t, "summarize", fallbacks[0].Feature)
}

func TestCascadeAllTiersExhausted(t *testing.T) {
	pool := newCountingPool("K1", "K2", "K3")
	a, b := alwaysFail(errQuota), alwaysFail(errQuota)

	_, err := Cascade(context.Background(), pool, []Tier[string]{
		tier("enhanced", a, nil),
		tier("standard", b, nil),
	}, WithSleeper((&recordingSleeper{}).Sleep))

	var all *apperrors.AllTiersExhaustedError
	require.ErrorAs(t, err, &all)
	require.Equal(t, []string{"enhanced", "standard"}, all.Tiers)
	require.Equal(t, 4, a.count())
	require.Equal(t, 4, b.count())

	var terminal *apperrors.TerminalQuotaError
	require.ErrorAs(t, err, &terminal)
	require.Equal(t, "standard", terminal.Tier)
}

func TestCascadeFatalStopsImmediately(t *testing.T) {
	pool := newCountingPool("K1", "K2")
	a := alwaysFail(errBad)
	b := succeedWith("never")
	var builtB int

	_, err := Cascade(context.Background(), pool, []Tier[string]{
		tier("enhanced", a, nil),
		tier("standard", b, &builtB),
	})
	require.ErrorIs(t, err, errBad)
	require.Zero(t, builtB)
	require.Zero(t, pool.rotations())
}

func TestCascadeSharesPoolStateAcrossTiers(t *testing.T) {
	pool := newCountingPool("K1", "K2", "K3")
	a := alwaysFail(errQuota)
	b := &scriptedOp{outcome: func(cred credential.Credential, _ int) (string, error) {
		if cred == "K3" {
			return "ok", nil
		}
		return "", errQuota
	}}

	got, err := Cascade(context.Background(), pool, []Tier[string]{
		tier("a", a, nil),
		tier("b", b, nil),
	}, WithMaxAttempts(2))
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, []credential.Credential{"K1", "K2"}, a.calls)
	// b starts where a left the cursor and still skips K1, which a marked exhausted.
	require.Equal(t, []credential.Credential{"K2", "K3"}, b.calls)
}

func TestCascadeNoTiers(t *testing.T) {
	_, err := Cascade[string](context.Background(), newCountingPool("K1"), nil)
	require.ErrorIs(t, err, apperrors.ErrNoTiers)
}
