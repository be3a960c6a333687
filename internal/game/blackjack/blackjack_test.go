package blackjack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/lantern/internal/deck"
	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/randutil"
)

func TestHandValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cards string
		want  int
	}{
		{name: "natural", cards: "AsKh", want: 21},
		{name: "fifteen plus ace", cards: "9s6hAd", want: 16},
		{name: "two aces", cards: "AsAh", want: 12},
		{name: "soft seventeen", cards: "As6h", want: 17},
		{name: "bust", cards: "KsQhTd", want: 30},
		{name: "face cards", cards: "JsQh", want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HandValue(deck.MustParseCards(tt.cards)))
		})
	}

	assert.True(t, IsNatural(deck.MustParseCards("AsKh")))
	assert.False(t, IsNatural(deck.MustParseCards("7s7h7d")))
}

func TestPayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		result Result
		bet    int
		want   int
	}{
		{Natural, 100, 250},
		{Natural, 15, 38},
		{Win, 100, 200},
		{Push, 100, 100},
		{Lose, 100, 0},
		{Bust, 100, 0},
	}

	for _, tt := range tests {
		p := Player{Bet: tt.bet, Result: tt.result}
		assert.Equal(t, tt.want, p.Payout(), "%s with bet %d", tt.result, tt.bet)
	}
}

// stacked deals cards in the listed order: dealer first, then each player,
// then any hits.
func stacked(cards string) Option {
	return WithDeck(func() *deck.Deck[deck.Card] {
		return deck.New(deck.MustParseCards(cards), nil)
	})
}

func handle(t *testing.T, g *Game, player game.PlayerID, kind game.ActionKind, arg string) game.Outcome {
	t.Helper()
	out, err := g.Handle(game.Action{Player: player, Name: string(player), Kind: kind, Arg: arg})
	require.NoError(t, err, "%s %s", player, kind)
	return out
}

func notice(err error) string {
	var n *game.Notice
	if errors.As(err, &n) {
		return n.Message
	}
	return ""
}

// seated returns a single-player game that has started betting.
func seated(t *testing.T, cards string) *Game {
	t.Helper()
	g := New(randutil.New(1), stacked(cards))
	handle(t, g, "ana", game.ActionJoin, "")
	handle(t, g, "ana", game.ActionStart, "")
	require.Equal(t, Betting, g.State())
	return g
}

func placeBet(t *testing.T, g *Game, player game.PlayerID, amount string) game.Outcome {
	t.Helper()
	out := handle(t, g, player, game.ActionBet, amount)
	require.NotNil(t, out.Prompt)
	require.True(t, out.Prompt.Expires)
	return handle(t, g, player, game.ActionConfirm, amount)
}

func TestDealerNatural(t *testing.T) {
	t.Parallel()

	g := seated(t, "AsKh9c8d")
	placeBet(t, g, "ana", "100")

	assert.Equal(t, Payout, g.State())
	_, dealerValue := g.Dealer()
	assert.Equal(t, 21, dealerValue)

	p := g.Get("ana")
	assert.Equal(t, Lose, p.Result)
	assert.Equal(t, 200, p.Chips)
}

func TestDealerNaturalAgainstTwoPlayers(t *testing.T) {
	t.Parallel()

	g := New(randutil.New(1), stacked("AsKh"+"AdKd"+"9c8d"))
	for _, id := range []game.PlayerID{"ana", "bo"} {
		handle(t, g, id, game.ActionJoin, "")
	}
	handle(t, g, "ana", game.ActionStart, "")
	placeBet(t, g, "ana", "100")
	require.Equal(t, Betting, g.State(), "dealing waits for every bet")
	placeBet(t, g, "bo", "100")

	assert.Equal(t, Payout, g.State())
	_, dealerValue := g.Dealer()
	assert.Equal(t, 21, dealerValue)

	ana := g.Get("ana")
	assert.Equal(t, Push, ana.Result, "a natural against a dealer natural pushes")
	assert.Equal(t, 300, ana.Chips)

	bo := g.Get("bo")
	assert.Equal(t, Lose, bo.Result)
	assert.Equal(t, 200, bo.Chips)

	_, err := g.Handle(game.Action{Player: "bo", Kind: game.ActionHit})
	assert.NotEmpty(t, notice(err), "no turns after a dealer natural")
}

func TestRoundResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cards     string
		actions   []game.ActionKind
		result    Result
		wantChips int
	}{
		{name: "twenty beats eighteen", cards: "Th8cTsQs", actions: []game.ActionKind{game.ActionStand}, result: Win, wantChips: 400},
		{name: "equal totals push", cards: "Th8cTs8d", actions: []game.ActionKind{game.ActionStand}, result: Push, wantChips: 300},
		{name: "bust pays nothing", cards: "Th8cTs6dKc", actions: []game.ActionKind{game.ActionHit}, result: Bust, wantChips: 200},
		{name: "player natural", cards: "Th8cAsKs", result: Natural, wantChips: 450},
		{name: "bust loses when the dealer busts too", cards: "Th6cTs6dKc9d", actions: []game.ActionKind{game.ActionHit}, result: Bust, wantChips: 200},
		{name: "dealer busts", cards: "Th6cTs7d9d", actions: []game.ActionKind{game.ActionStand}, result: Win, wantChips: 400},
		{name: "hit to twenty one", cards: "Th8c5s6dTd", actions: []game.ActionKind{game.ActionHit}, result: Win, wantChips: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := seated(t, tt.cards)
			placeBet(t, g, "ana", "100")
			for _, kind := range tt.actions {
				handle(t, g, "ana", kind, "")
			}

			require.Equal(t, Payout, g.State())
			p := g.Get("ana")
			assert.Equal(t, tt.result, p.Result)
			assert.Equal(t, tt.wantChips, p.Chips)
		})
	}
}

func TestBetNotices(t *testing.T) {
	t.Parallel()

	g := seated(t, "Th8cTsQs")

	tests := []struct {
		arg  string
		want string
	}{
		{arg: "abc", want: "abc is not a valid number."},
		{arg: "0", want: "Bets must be at least 1 chip."},
		{arg: "301", want: "You cannot afford this bet."},
	}
	for _, tt := range tests {
		_, err := g.Handle(game.Action{Player: "ana", Kind: game.ActionBet, Arg: tt.arg})
		assert.Equal(t, tt.want, notice(err), "bet %q", tt.arg)
	}

	_, err := g.Handle(game.Action{Player: "zed", Kind: game.ActionBet, Arg: "10"})
	assert.Equal(t, game.MsgNotInGame, notice(err))
}

func TestCancelAndTimeoutLeaveChipsUntouched(t *testing.T) {
	t.Parallel()

	g := seated(t, "Th8cTsQs")

	handle(t, g, "ana", game.ActionBet, "50")
	out := handle(t, g, "ana", game.ActionCancel, "")
	assert.Equal(t, "Cancelled bet!", out.Reply)

	_, err := g.Handle(game.Action{Player: "ana", Kind: game.ActionCancel})
	assert.Equal(t, "You have no bet waiting for confirmation.", notice(err))

	handle(t, g, "ana", game.ActionBet, "50")
	handle(t, g, "ana", game.ActionTimeout, "")
	_, err = g.Handle(game.Action{Player: "ana", Kind: game.ActionConfirm, Arg: "50"})
	assert.NotEmpty(t, notice(err), "confirming an expired bet should be rejected")

	p := g.Get("ana")
	assert.Equal(t, 300, p.Chips)
	assert.Zero(t, p.Bet)
	assert.Equal(t, Betting, g.State())
}

func TestTurnsFollowJoinOrder(t *testing.T) {
	t.Parallel()

	g := New(randutil.New(1), stacked("Th8cTsQs9s8s5c"))
	handle(t, g, "ana", game.ActionJoin, "")
	handle(t, g, "bo", game.ActionJoin, "")
	handle(t, g, "ana", game.ActionStart, "")

	_, err := g.Handle(game.Action{Player: "cy", Kind: game.ActionJoin})
	assert.Equal(t, game.MsgNotJoinable, notice(err))

	placeBet(t, g, "ana", "100")
	assert.Equal(t, Betting, g.State(), "dealing waits for every bet")
	placeBet(t, g, "bo", "50")

	require.Equal(t, PlayerTurns, g.State())
	assert.Equal(t, game.PlayerID("ana"), g.Current)

	_, err = g.Handle(game.Action{Player: "bo", Kind: game.ActionHit})
	assert.Equal(t, game.MsgNotYourTurn, notice(err))

	handle(t, g, "ana", game.ActionStand, "")
	assert.Equal(t, game.PlayerID("bo"), g.Current)

	// 9+8+5 = 22
	handle(t, g, "bo", game.ActionHit, "")
	require.Equal(t, Payout, g.State())
	assert.Equal(t, Win, g.Get("ana").Result)
	assert.Equal(t, Bust, g.Get("bo").Result)
}

func TestRestartKeepsChips(t *testing.T) {
	t.Parallel()

	g := seated(t, "Th8cTsQs")
	placeBet(t, g, "ana", "100")
	handle(t, g, "ana", game.ActionStand, "")
	require.Equal(t, Payout, g.State())

	handle(t, g, "ana", game.ActionRestart, "")
	assert.Equal(t, Joining, g.State())
	p := g.Get("ana")
	assert.Equal(t, 400, p.Chips)
	assert.Empty(t, p.Hand)
	assert.Zero(t, p.Bet)

	out := handle(t, g, "ana", game.ActionEnd, "")
	assert.True(t, out.Ended)
	assert.Equal(t, Ended, g.State())
	for _, b := range g.Render().Buttons {
		assert.False(t, b.Enabled)
	}
}

func TestEndOnlyBetweenRounds(t *testing.T) {
	t.Parallel()

	g := seated(t, "Th8cTsQs")
	_, err := g.Handle(game.Action{Player: "ana", Kind: game.ActionEnd})
	assert.NotEmpty(t, notice(err))
	assert.False(t, g.Ended())
}

func TestRenderHidesHoleCard(t *testing.T) {
	t.Parallel()

	g := New(randutil.New(1), stacked("Th8cTsQs9s8s"))
	handle(t, g, "ana", game.ActionJoin, "")
	handle(t, g, "bo", game.ActionJoin, "")
	handle(t, g, "ana", game.ActionStart, "")
	placeBet(t, g, "ana", "10")
	placeBet(t, g, "bo", "10")

	view := g.Render()
	assert.Contains(t, view.Text, "Dealer: T♥ ??")
	assert.NotContains(t, view.Text, "8♣")
}
