package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"quotaflow-go/internal/credential"
	apperrors "quotaflow-go/internal/errors"

	"github.com/stretchr/testify/require"
)

type stubOverrides struct {
	cred  credential.Credential
	ok    bool
	err   error
	calls int
}

func (s *stubOverrides) OverrideCredential(context.Context) (credential.Credential, bool, error) {
	s.calls++
	return s.cred, s.ok, s.err
}

func TestRunOverrideRetriesTransientOnce(t *testing.T) {
	sleeper := &recordingSleeper{}
	op := alwaysFail(errQuota)

	_, err := RunOverride(context.Background(), "user-key", op.op, WithSleeper(sleeper.Sleep))
	require.ErrorIs(t, err, errQuota)
	require.Equal(t, 2, op.count())
	require.Equal(t, []time.Duration{2000 * time.Millisecond}, sleeper.waits())

	var terminal *apperrors.TerminalQuotaError
	require.False(t, errors.As(err, &terminal), "override errors propagate as-is")
}

func TestRunOverrideFatalFirstAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	op := alwaysFail(errBad)

	_, err := RunOverride(context.Background(), "user-key", op.op, WithSleeper(sleeper.Sleep))
	require.ErrorIs(t, err, errBad)
	require.Equal(t, 1, op.count())
	require.Empty(t, sleeper.waits())
}

func TestRunOverrideSecondAttemptSucceeds(t *testing.T) {
	op := &scriptedOp{outcome: func(_ credential.Credential, call int) (string, error) {
		if call == 1 {
			return "", errQuota
		}
		return "done", nil
	}}

	got, err := RunOverride(context.Background(), "user-key", op.op,
		WithSleeper((&recordingSleeper{}).Sleep), WithOverrideDelay(50*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, "done", got)
}

func TestExecuteOverrideBypassesPool(t *testing.T) {
	pool := newCountingPool("K1", "K2", "K3")
	overrides := &stubOverrides{cred: "personal", ok: true}
	r := NewRunner(pool, overrides, WithSleeper((&recordingSleeper{}).Sleep))

	a := alwaysFail(errQuota)
	var builtB int
	_, err := Execute(context.Background(), r, "chat", []Tier[string]{
		tier("enhanced", a, nil),
		tier("standard", succeedWith("never"), &builtB),
	})
	require.ErrorIs(t, err, errQuota)
	require.Equal(t, 2, a.count())
	require.Equal(t, []credential.Credential{"personal", "personal"}, a.calls)
	require.Zero(t, pool.rotations())
	require.Zero(t, builtB)
	require.Empty(t, pool.Snapshot().Exhausted)
}

func TestExecuteReadsOverrideEveryCall(t *testing.T) {
	pool := newCountingPool("K1")
	overrides := &stubOverrides{}
	r := NewRunner(pool, overrides)
	op := succeedWith("ok")
	tiers := []Tier[string]{tier("standard", op, nil)}

	_, err := Execute(context.Background(), r, "chat", tiers)
	require.NoError(t, err)
	require.Equal(t, credential.Credential("K1"), op.calls[0])

	overrides.cred, overrides.ok = "personal", true
	_, err = Execute(context.Background(), r, "chat", tiers)
	require.NoError(t, err)
	require.Equal(t, credential.Credential("personal"), op.calls[1])
	require.Equal(t, 2, overrides.calls)
}

func TestExecuteFallsBackToPoolWhenLookupFails(t *testing.T) {
	pool := newCountingPool("K1")
	r := NewRunner(pool, &stubOverrides{err: errors.New("redis down")})
	op := succeedWith("ok")

	got, err := Execute(context.Background(), r, "chat", []Tier[string]{tier("standard", op, nil)})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, credential.Credential("K1"), op.calls[0])
}

func TestExecuteEmptyPoolWithoutOverride(t *testing.T) {
	r := NewRunner(newCountingPool(), &stubOverrides{})
	_, err := Execute(context.Background(), r, "chat", []Tier[string]{tier("standard", succeedWith("x"), nil)})
	require.ErrorIs(t, err, apperrors.ErrEmptyPool)
}

func TestExecuteEmptyPoolWithOverride(t *testing.T) {
	r := NewRunner(newCountingPool(), &stubOverrides{cred: "personal", ok: true})
	got, err := Execute(context.Background(), r, "chat", []Tier[string]{tier("standard", succeedWith("x"), nil)})
	require.NoError(t, err)
	require.Equal(t, "x", got)
}

func TestExecuteRequestTimeout(t *testing.T) {
	r := NewRunner(newCountingPool("solo"), nil)
	r.SetRequestTimeout(20 * time.Millisecond)
	op := &scriptedOp{outcome: func(credential.Credential, int) (string, error) { return "", errQuota }}

	start := time.Now()
	_, err := Execute(context.Background(), r, "chat", []Tier[string]{tier("standard", op, nil)})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, op.count())
}
