package corert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellationTokenEmpty(t *testing.T) {
	var tok CancellationToken
	assert.False(t, tok.CanBeCancelled(), "zero-value token should report CanBeCancelled() == false")
	assert.False(t, tok.Canceled(), "zero-value token should never be canceled")

	fired := false
	reg := tok.OnCancel(func(any) { fired = true })
	reg.Unregister()
	assert.False(t, fired, "OnCancel handler should never fire on an empty token")
}

func TestCancellationSourceFiresHandlersOnce(t *testing.T) {
	src := NewCancellationSource()
	tok := src.Token()

	calls := 0
	var lastReason any
	tok.OnCancel(func(reason any) {
		calls++
		lastReason = reason
	})

	src.Cancel("boom")
	src.Cancel("ignored second reason")

	assert.Equal(t, 1, calls, "handler call count")
	assert.Equal(t, "boom", lastReason)
	assert.True(t, tok.Canceled())
}

func TestCancellationTokenOnCancelFiresImmediatelyIfAlreadyCanceled(t *testing.T) {
	src := NewCancellationSource()
	src.Cancel("reason")
	tok := src.Token()

	fired := false
	tok.OnCancel(func(reason any) {
		fired = true
		assert.Equal(t, "reason", reason)
	})
	require.True(t, fired, "expected immediate synchronous firing for already-canceled source")
}

func TestCancellationRegistrationUnregisterPreventsFiring(t *testing.T) {
	src := NewCancellationSource()
	tok := src.Token()

	fired := false
	reg := tok.OnCancel(func(any) { fired = true })
	reg.Unregister()
	reg.Unregister() // idempotent

	src.Cancel(nil)
	assert.False(t, fired, "unregistered handler must not fire")
}

func TestCancellationErrorIsErrCanceled(t *testing.T) {
	src := NewCancellationSource()
	src.Cancel(nil)
	err := src.Token().Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
}

func TestAnyTokenFiresOnFirstCancellation(t *testing.T) {
	a := NewCancellationSource()
	b := NewCancellationSource()
	composite := AnyToken(a.Token(), b.Token())

	require.False(t, composite.Canceled(), "composite should not start canceled")
	b.Cancel("b reason")
	require.True(t, composite.Canceled(), "composite should be canceled once any source cancels")
	assert.Equal(t, "b reason", composite.Reason())

	a.Cancel("a reason") // must not change the already-latched reason
	assert.Equal(t, "b reason", composite.Reason(), "reason must not change after second source cancels")
}

func TestAnyTokenWithAlreadyCanceledSource(t *testing.T) {
	a := NewCancellationSource()
	a.Cancel("already gone")
	composite := AnyToken(a.Token())
	assert.True(t, composite.Canceled(), "expected composite to be canceled immediately")
}

func TestCancellationContextCancelsOnTokenCancel(t *testing.T) {
	src := NewCancellationSource()
	ctx, cancel := src.Token().Context()
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done yet")
	default:
	}

	src.Cancel("go")
	<-ctx.Done()
	assert.Error(t, ctx.Err())
}
