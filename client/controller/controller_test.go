package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btlshyp/game"
	"btlshyp/protocol"
)

const waitFor = 2 * time.Second

type fakeView struct {
	names chan string
	calls chan string
}

func newFakeView(names ...string) *fakeView {
	v := &fakeView{names: make(chan string, len(names)), calls: make(chan string, 256)}
	for _, n := range names {
		v.names <- n
	}
	return v
}

func (v *fakeView) PromptUsername(ctx context.Context) (string, error) {
	v.calls <- "prompt"
	select {
	case n := <-v.names:
		return n, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (v *fakeView) RequestShip(kind game.ShipKind) { v.calls <- "ship:" + kind.String() }
func (v *fakeView) RequestAttack()                 { v.calls <- "attack" }
func (v *fakeView) DisplayAttack(r *protocol.AttackResponseMessage) {
	v.calls <- "displayAttack:" + r.String()
}
func (v *fakeView) DisplayOpponentAttack(r *protocol.AttackResponseMessage) {
	v.calls <- "opponentAttack:" + r.String()
}
func (v *fakeView) DisplayChat(user, text string)   { v.calls <- "chat:" + user + ":" + text }
func (v *fakeView) DisplayNotification(text string) { v.calls <- "notify:" + text }
func (v *fakeView) NotYourTurn()                    { v.calls <- "notYourTurn" }
func (v *fakeView) DisplayShip(s *game.Ship)        { v.calls <- "displayShip:" + s.Kind().String() }
func (v *fakeView) Reset()                          { v.calls <- "reset" }

// expect skips view calls until one starts with prefix.
func (v *fakeView) expect(t *testing.T, prefix string) string {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case call := <-v.calls:
			if strings.HasPrefix(call, prefix) {
				return call
			}
		case <-deadline:
			t.Fatalf("view call %q not seen", prefix)
			return ""
		}
	}
}

type fakeNet struct {
	mu      sync.Mutex
	logins  []bool
	tried   []string
	handler protocol.Handler

	listening chan struct{}
	sent      chan protocol.Message
	done      chan struct{}
	doneOnce  sync.Once
	err       error
	sendErr   error
}

func newFakeNet(logins ...bool) *fakeNet {
	return &fakeNet{
		logins:    logins,
		listening: make(chan struct{}),
		sent:      make(chan protocol.Message, 256),
		done:      make(chan struct{}),
	}
}

func (n *fakeNet) Login(username string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tried = append(n.tried, username)
	if len(n.logins) == 0 {
		return true, nil
	}
	ok := n.logins[0]
	n.logins = n.logins[1:]
	return ok, nil
}

func (n *fakeNet) Listen(h protocol.Handler) error {
	n.mu.Lock()
	n.handler = h
	n.mu.Unlock()
	close(n.listening)
	return nil
}

func (n *fakeNet) Send(msg protocol.Message) error {
	n.mu.Lock()
	err := n.sendErr
	n.mu.Unlock()
	if err != nil {
		return err
	}
	n.sent <- msg
	return nil
}

func (n *fakeNet) Done() <-chan struct{} { return n.done }
func (n *fakeNet) Err() error            { return n.err }
func (n *fakeNet) Close() error          { return nil }

func (n *fakeNet) drop(err error) {
	n.doneOnce.Do(func() {
		n.err = err
		close(n.done)
	})
}

// deliver plays the reader goroutine.
func (n *fakeNet) deliver(t *testing.T, msg protocol.Message) {
	t.Helper()
	select {
	case <-n.listening:
	case <-time.After(waitFor):
		t.Fatal("controller never started listening")
	}
	n.mu.Lock()
	h := n.handler
	n.mu.Unlock()
	h.HandleMessage(msg)
}

func (n *fakeNet) expect(t *testing.T, mt protocol.MessageType) protocol.Message {
	t.Helper()
	select {
	case msg := <-n.sent:
		require.Equal(t, mt, msg.MessageType())
		return msg
	case <-time.After(waitFor):
		t.Fatalf("message %s not sent", mt)
		return nil
	}
}

func (n *fakeNet) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case msg := <-n.sent:
		t.Fatalf("unexpected %s", msg.MessageType())
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	ctrl   *Controller
	view   *fakeView
	net    *fakeNet
	cancel context.CancelFunc
	result chan error
}

func start(t *testing.T, view *fakeView, n *fakeNet) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := New(view, func(context.Context) (Network, error) { return n, nil })
	h := &harness{ctrl: ctrl, view: view, net: n, cancel: cancel, result: make(chan error, 1)}
	go func() { h.result <- ctrl.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.result:
		return err
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
		return nil
	}
}

// fleet is a valid layout for every kind.
var fleet = map[game.ShipKind][]game.Coordinate{
	game.Battleship: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}},
	game.Destroyer:  {{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
	game.PatrolBoat: {{X: 0, Y: 2}, {X: 1, Y: 2}},
	game.Submarine:  {{X: 0, Y: 3}, {X: 1, Y: 3}, {X: 2, Y: 3}},
}

// joined drives a fresh harness up to the first ship request.
func joined(t *testing.T) *harness {
	t.Helper()
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)
	h.net.deliver(t, protocol.NewJoinResponseMessage("server", protocol.Accept))
	h.view.expect(t, "notify:Game joined")
	h.net.deliver(t, protocol.NewGameStartMessage("server", "bob"))
	h.view.expect(t, "ship:BATTLESHIP")
	return h
}

// placed continues from joined until SHIPS_PLACED goes out.
func placed(t *testing.T) *harness {
	t.Helper()
	h := joined(t)
	for i, kind := range game.PlacementOrder {
		if i > 0 {
			h.view.expect(t, "ship:"+kind.String())
		}
		require.NoError(t, h.ctrl.SubmitShip(game.NewShip(kind, fleet[kind]...)))
		h.view.expect(t, "displayShip:"+kind.String())
	}
	h.net.expect(t, protocol.TypeShipsPlaced)
	return h
}

func TestJoinRejectedEndsRun(t *testing.T) {
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)
	h.net.deliver(t, protocol.NewJoinResponseMessage("server", protocol.Reject))

	require.NoError(t, h.wait(t))
	assert.Equal(t, StateDone, h.ctrl.State())
	h.view.expect(t, "notify:Unable to join")
	h.view.expect(t, "reset")
}

func TestLoginRetriesWithNewName(t *testing.T) {
	h := start(t, newFakeView("alice", "bob"), newFakeNet(false, true))
	h.view.expect(t, "notify:Unable to log in")
	join := h.net.expect(t, protocol.TypeJoinAttempt)
	assert.Equal(t, "bob", join.Sender())

	h.net.mu.Lock()
	assert.Equal(t, []string{"alice", "bob"}, h.net.tried)
	h.net.mu.Unlock()
}

func TestLateJoinAcceptDoesNotRegress(t *testing.T) {
	c := New(newFakeView(), nil)
	c.state = StateStarted
	c.setState(StateJoined)
	assert.Equal(t, StateStarted, c.state)

	c.setState(StateWaiting)
	c.setState(StateJoined)
	assert.Equal(t, StateJoined, c.state)
}

func TestLateJoinAcceptDuringPlacement(t *testing.T) {
	h := joined(t)
	h.net.deliver(t, protocol.NewJoinResponseMessage("server", protocol.Accept))

	for i, kind := range game.PlacementOrder {
		if i > 0 {
			h.view.expect(t, "ship:"+kind.String())
		}
		require.NoError(t, h.ctrl.SubmitShip(game.NewShip(kind, fleet[kind]...)))
	}
	h.net.expect(t, protocol.TypeShipsPlaced)
}

func TestInvalidPlacementIsRequestedAgain(t *testing.T) {
	h := joined(t)

	diagonal := game.NewShip(game.Battleship,
		game.Coordinate{X: 0, Y: 0}, game.Coordinate{X: 1, Y: 1},
		game.Coordinate{X: 2, Y: 2}, game.Coordinate{X: 3, Y: 3})
	require.NoError(t, h.ctrl.SubmitShip(diagonal))
	h.view.expect(t, "notify:Invalid ship placement")
	h.view.expect(t, "ship:BATTLESHIP")

	require.NoError(t, h.ctrl.SubmitShip(game.NewShip(game.Battleship, fleet[game.Battleship]...)))
	h.view.expect(t, "displayShip:BATTLESHIP")
	h.view.expect(t, "ship:DESTROYER")

	// crosses the battleship
	overlap := game.NewShip(game.Destroyer,
		game.Coordinate{X: 1, Y: 0}, game.Coordinate{X: 1, Y: 1}, game.Coordinate{X: 1, Y: 2})
	require.NoError(t, h.ctrl.SubmitShip(overlap))
	h.view.expect(t, "notify:Invalid ship placement")
	h.view.expect(t, "ship:DESTROYER")
}

func TestAttackAndMiss(t *testing.T) {
	h := placed(t)

	h.net.deliver(t, protocol.NewTurnStartMessage("bob", protocol.TurnStart))
	h.view.expect(t, "attack")

	target := game.Coordinate{X: 4, Y: 4}
	require.NoError(t, h.ctrl.SubmitAttack(target))
	attempt := h.net.expect(t, protocol.TypeAttackAttempt).(*protocol.AttackAttemptMessage)
	assert.Equal(t, target, attempt.Coordinate)

	h.net.deliver(t, protocol.NewAttackResponseMessage("bob", protocol.Miss, protocol.SunkNone, target))
	h.view.expect(t, "displayAttack:MISS")
	turn := h.net.expect(t, protocol.TypeTurn).(*protocol.TurnStartMessage)
	assert.Equal(t, protocol.TurnEnd, turn.Turn)
	h.view.expect(t, "notYourTurn")
}

func TestIncomingAttackIsAnswered(t *testing.T) {
	h := placed(t)

	for _, c := range fleet[game.PatrolBoat] {
		h.net.deliver(t, protocol.NewAttackAttemptMessage("bob", c))
	}
	first := h.net.expect(t, protocol.TypeAttackResponse).(*protocol.AttackResponseMessage)
	assert.Equal(t, protocol.Hit, first.HitOrMiss)
	assert.Equal(t, protocol.SunkNone, first.ShipSunk)

	second := h.net.expect(t, protocol.TypeAttackResponse).(*protocol.AttackResponseMessage)
	assert.Equal(t, protocol.Hit, second.HitOrMiss)
	assert.Equal(t, protocol.SunkPatrolBoat, second.ShipSunk)
	h.view.expect(t, "opponentAttack:HIT")

	h.net.deliver(t, protocol.NewAttackAttemptMessage("bob", game.Coordinate{X: 9, Y: 9}))
	miss := h.net.expect(t, protocol.TypeAttackResponse).(*protocol.AttackResponseMessage)
	assert.Equal(t, protocol.Miss, miss.HitOrMiss)
}

func TestWinAfterTwelveHitsThenRejoin(t *testing.T) {
	h := placed(t)

	i := 0
	for _, kind := range game.PlacementOrder {
		for _, c := range fleet[kind] {
			h.net.deliver(t, protocol.NewAttackResponseMessage("bob", protocol.Hit, protocol.SunkNone, c))
			i++
			if i < game.TotalShipCells() {
				h.net.expect(t, protocol.TypeTurn)
			}
		}
	}
	h.net.expect(t, protocol.TypeGameWonAttempt)
	h.view.expect(t, "notify:Please wait")

	h.net.deliver(t, protocol.NewGameWonResponseMessage("bob", protocol.Win))
	h.view.expect(t, "notify:You won")
	h.view.expect(t, "reset")
	h.net.expect(t, protocol.TypeJoinAttempt)
}

func TestLoseResponse(t *testing.T) {
	h := placed(t)
	h.net.deliver(t, protocol.NewGameWonResponseMessage("bob", protocol.Lose))
	h.view.expect(t, "notify:You lost")
	h.view.expect(t, "reset")
	h.net.expect(t, protocol.TypeJoinAttempt)
}

func TestConcedeWhenFleetSunk(t *testing.T) {
	h := placed(t)
	for _, kind := range game.PlacementOrder {
		for _, c := range fleet[kind] {
			h.net.deliver(t, protocol.NewAttackAttemptMessage("bob", c))
			h.net.expect(t, protocol.TypeAttackResponse)
		}
	}

	h.net.deliver(t, protocol.NewGameWonAttemptMessage("bob"))
	resp := h.net.expect(t, protocol.TypeGameWonResponse).(*protocol.GameWonResponseMessage)
	assert.Equal(t, protocol.Win, resp.GameResult)
	h.view.expect(t, "notify:You lost")
	h.net.expect(t, protocol.TypeJoinAttempt)
}

func TestFalseWinClaimIsReported(t *testing.T) {
	h := placed(t)
	h.net.deliver(t, protocol.NewGameWonAttemptMessage("bob"))
	h.view.expect(t, "notify:bob claimed victory")
	h.net.expectNothing(t)
}

func TestChatBothWays(t *testing.T) {
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)

	require.NoError(t, h.ctrl.SubmitChat("hello"))
	chat := h.net.expect(t, protocol.TypeChat).(*protocol.ChatMessage)
	assert.Equal(t, "hello", chat.Text)
	assert.Equal(t, "alice", chat.Username)

	h.net.deliver(t, protocol.NewChatMessage("bob", "hi"))
	h.view.expect(t, "chat:bob:hi")
}

func TestStrayInputIsDropped(t *testing.T) {
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)

	require.NoError(t, h.ctrl.SubmitAttack(game.Coordinate{X: 1, Y: 1}))
	require.NoError(t, h.ctrl.SubmitShip(game.NewShip(game.PatrolBoat, fleet[game.PatrolBoat]...)))
	h.net.expectNothing(t)
}

func TestConnectionLost(t *testing.T) {
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)

	h.net.drop(errors.New("EOF"))
	err := h.wait(t)
	assert.ErrorIs(t, err, ErrConnectionLost)
	h.view.expect(t, "notify:Connection to server lost")
}

func TestCancelStopsRun(t *testing.T) {
	h := start(t, newFakeView("alice"), newFakeNet())
	h.net.expect(t, protocol.TypeJoinAttempt)

	h.cancel()
	assert.NoError(t, h.wait(t))
	assert.ErrorIs(t, h.ctrl.SubmitChat("late"), ErrStopped)
}

func TestDialFailureIsFatal(t *testing.T) {
	dialErr := fmt.Errorf("connect: refused")
	c := New(newFakeView(), func(context.Context) (Network, error) { return nil, dialErr })
	assert.ErrorIs(t, c.Run(context.Background()), dialErr)
}

func TestSendFailureEndsRun(t *testing.T) {
	n := newFakeNet()
	n.sendErr = errors.New("broken pipe")
	h := start(t, newFakeView("alice"), n)
	assert.EqualError(t, h.wait(t), "broken pipe")
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "TURN_THEM", StateTurnThem.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
