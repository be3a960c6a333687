package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/gameid"
	"github.com/lox/lantern/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type recorder struct {
	updates chan Update
}

func newRecorder() *recorder {
	return &recorder{updates: make(chan Update, 16)}
}

func (r *recorder) Publish(u Update) {
	r.updates <- u
}

func (r *recorder) next(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-r.updates:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a published update")
		return Update{}
	}
}

func (r *recorder) empty(t *testing.T) {
	t.Helper()
	select {
	case u := <-r.updates:
		t.Fatalf("unexpected update %+v", u)
	default:
	}
}

func newTestRegistry(t *testing.T, clock quartz.Clock) (*Registry, *recorder) {
	t.Helper()
	reg := NewRegistry(testLogger(), DefaultRules(),
		WithClock(clock),
		WithRand(randutil.New(42)),
		WithIDs(gameid.NewGenerator(nil)),
	)
	rec := newRecorder()
	reg.AddPublisher(rec)
	return reg, rec
}

func act(player game.PlayerID, kind game.ActionKind, arg string) game.Action {
	return game.Action{Player: player, Name: string(player), Kind: kind, Arg: arg}
}

func TestConcurrentStartCreatesOneSession(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, quartz.NewReal())

	const attempts = 50
	var (
		wg      sync.WaitGroup
		started atomic.Int32
		busy    atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Start("general", game.Counter, game.PlayerID(fmt.Sprintf("p%d", i)))
			var active *AlreadyActiveError
			switch {
			case err == nil:
				started.Add(1)
			case errors.As(err, &active):
				busy.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(attempts-1), busy.Load())
	assert.Equal(t, 1, reg.Len())
}

func TestStartInBusyChannel(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, quartz.NewReal())
	s, err := reg.Start("general", game.Blackjack, "ana")
	require.NoError(t, err)
	require.NoError(t, gameid.Validate(s.ID()))

	_, err = reg.Start("general", game.Uno, "bo")
	var active *AlreadyActiveError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, "A game has already been started in this channel.", err.Error())
	assert.Equal(t, game.Blackjack, active.Kind)

	_, err = reg.Start("random", game.Uno, "bo")
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "general", list[0].Channel)
	assert.Equal(t, "blackjack", list[0].Game)
	assert.Equal(t, "uno", list[1].Game)
}

func TestHandleWithoutSession(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, quartz.NewReal())
	_, err := reg.Handle("nowhere", act("ana", game.ActionJoin, ""))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestEndedSessionIsDropped(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, quartz.NewReal())
	_, err := reg.Start("general", game.Counter, "ana")
	require.NoError(t, err)

	u, err := reg.Handle("general", act("ana", game.ActionIncrement, ""))
	require.NoError(t, err)
	assert.Equal(t, "You've hit it!", u.Outcome.Reply)
	assert.Equal(t, "Counter: 1", u.View.Text)

	u, err = reg.Handle("general", act("ana", game.ActionEnd, ""))
	require.NoError(t, err)
	assert.True(t, u.Ended)
	for _, b := range u.View.Buttons {
		assert.False(t, b.Enabled, "an ended menu has no live buttons")
	}

	assert.Zero(t, reg.Len())
	_, err = reg.Handle("general", act("ana", game.ActionIncrement, ""))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = reg.Start("general", game.Counter, "ana")
	assert.NoError(t, err, "the channel is free again")
}

func TestLastPlayerLeavingDropsSession(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, quartz.NewReal())
	_, err := reg.Start("general", game.Poker, "ana")
	require.NoError(t, err)

	_, err = reg.Handle("general", act("ana", game.ActionJoin, ""))
	require.NoError(t, err)
	u, err := reg.Handle("general", act("ana", game.ActionLeave, ""))
	require.NoError(t, err)
	assert.True(t, u.Ended)
	assert.Zero(t, reg.Len())
}

func TestRegistryEndPublishes(t *testing.T) {
	t.Parallel()

	reg, rec := newTestRegistry(t, quartz.NewReal())
	s, err := reg.Start("general", game.Uno, "ana")
	require.NoError(t, err)

	assert.True(t, reg.End("general"))
	u := rec.next(t)
	assert.True(t, u.Ended)
	assert.Equal(t, s.ID(), u.SessionID)
	assert.False(t, reg.End("general"))

	_, err = s.Handle(act("ana", game.ActionJoin, ""))
	var n *game.Notice
	require.ErrorAs(t, err, &n)
	assert.Equal(t, game.MsgEnded, n.Message)
}

func startBetting(t *testing.T, reg *Registry) {
	t.Helper()
	_, err := reg.Start("table", game.Blackjack, "ana")
	require.NoError(t, err)
	for _, a := range []game.Action{
		act("ana", game.ActionJoin, ""),
		act("ana", game.ActionStart, ""),
	} {
		_, err := reg.Handle("table", a)
		require.NoError(t, err)
	}
}

func TestExpiredPromptCancelsBet(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	reg, rec := newTestRegistry(t, mClock)
	startBetting(t, reg)

	u, err := reg.Handle("table", act("ana", game.ActionBet, "50"))
	require.NoError(t, err)
	require.NotNil(t, u.Outcome.Prompt)
	require.True(t, u.Outcome.Prompt.Expires)

	mClock.Advance(DefaultPromptTimeout).MustWait(ctx)

	expired := rec.next(t)
	assert.True(t, expired.Timeout)
	assert.Equal(t, game.PlayerID("ana"), expired.Actor)
	assert.Equal(t, "Your bet confirmation expired, so the bet was cancelled.", expired.Outcome.Reply)

	_, err = reg.Handle("table", act("ana", game.ActionConfirm, "50"))
	var n *game.Notice
	require.ErrorAs(t, err, &n, "the expired bet can no longer be confirmed")
}

func TestAnsweredPromptDoesNotExpire(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	reg, rec := newTestRegistry(t, mClock)
	startBetting(t, reg)

	_, err := reg.Handle("table", act("ana", game.ActionBet, "50"))
	require.NoError(t, err)
	u, err := reg.Handle("table", act("ana", game.ActionConfirm, "50"))
	require.NoError(t, err)
	assert.Equal(t, "Bet of 50 placed!", u.Outcome.Reply)

	mClock.Advance(DefaultPromptTimeout).MustWait(ctx)
	rec.empty(t)
}

func TestCounterPromptExpiryIsHarmless(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	reg, rec := newTestRegistry(t, mClock)
	_, err := reg.Start("general", game.Counter, "ana")
	require.NoError(t, err)

	u, err := reg.Handle("general", act("ana", game.ActionHitOrMiss, ""))
	require.NoError(t, err)
	require.NotNil(t, u.Outcome.Prompt)

	mClock.Advance(DefaultPromptTimeout).MustWait(ctx)
	expired := rec.next(t)
	assert.True(t, expired.Timeout)
	assert.Empty(t, expired.Outcome.Reply)
	assert.Equal(t, "Counter: 0", expired.View.Text)
	assert.Equal(t, 1, reg.Len())
}
