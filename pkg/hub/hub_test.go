package hub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/parley/pkg/adapters/memory"
	"github.com/voyago/parley/pkg/domain"
	"github.com/voyago/parley/pkg/hub"
)

// fakePeer records everything sent to it.
type fakePeer struct {
	mu     sync.Mutex
	sent   []domain.ServerMessage
	closed bool
}

func (p *fakePeer) Send(ctx context.Context, msg domain.ServerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePeer) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *fakePeer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) messages() []domain.ServerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ServerMessage(nil), p.sent...)
}

func (p *fakePeer) last(t *testing.T) domain.ServerMessage {
	t.Helper()
	msgs := p.messages()
	require.NotEmpty(t, msgs, "expected at least one message")
	return msgs[len(msgs)-1]
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func pairedSession(t *testing.T, h *hub.Hub) (*fakePeer, *fakePeer) {
	t.Helper()
	ctx := context.Background()

	a, b := &fakePeer{}, &fakePeer{}
	joined, err := h.Init(ctx, "s1", "u1", a)
	require.NoError(t, err)
	require.False(t, joined)

	joined, err = h.Init(ctx, "s1", "u2", b)
	require.NoError(t, err)
	require.True(t, joined)
	return a, b
}

func TestInit_Admission(t *testing.T) {
	h := hub.New()
	a, _ := pairedSession(t, h)

	// Initiator got the best-effort join notice.
	notice := a.last(t)
	assert.Equal(t, domain.TypeSuccess, notice.Type)
	assert.Contains(t, notice.Message, "joined")
	assert.Equal(t, 1, h.Count())
}

func TestInit_ThirdJoinRejected(t *testing.T) {
	h := hub.New()
	a, b := pairedSession(t, h)
	before := len(a.messages()) + len(b.messages())

	_, err := h.Init(context.Background(), "s1", "u3", &fakePeer{})
	assert.ErrorIs(t, err, domain.ErrSessionFull)

	// The existing pair is untouched: same registry size, no new frames.
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, before, len(a.messages())+len(b.messages()))

	err = h.Relay(context.Background(), "s1", "u1", "still works")
	assert.NoError(t, err)
}

func TestRelay_BothDirections(t *testing.T) {
	h := hub.New()
	a, b := pairedSession(t, h)
	ctx := context.Background()

	require.NoError(t, h.Relay(ctx, "s1", "u1", "bonjour"))
	fwd := b.last(t)
	assert.Equal(t, domain.TypeTranslation, fwd.Type)
	assert.Equal(t, "s1", fwd.SessionID)
	assert.Equal(t, "u1", fwd.UserID, "sender's id is preserved")
	assert.Equal(t, "bonjour", fwd.EncryptedMessage, "payload passes through untouched")

	require.NoError(t, h.Relay(ctx, "s1", "u2", "hello"))
	fwd = a.last(t)
	assert.Equal(t, "u2", fwd.UserID)
	assert.Equal(t, "hello", fwd.EncryptedMessage)
}

func TestRelay_BeforeInit(t *testing.T) {
	h := hub.New()
	err := h.Relay(context.Background(), "nope", "u1", "payload")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRelay_EmptyPayload(t *testing.T) {
	h := hub.New()
	pairedSession(t, h)
	err := h.Relay(context.Background(), "s1", "u1", "")
	assert.ErrorIs(t, err, domain.ErrEmptyPayload)
}

func TestRelay_PeerUnavailable(t *testing.T) {
	h := hub.New()
	ctx := context.Background()

	t.Run("no joiner yet", func(t *testing.T) {
		_, err := h.Init(ctx, "solo", "u1", &fakePeer{})
		require.NoError(t, err)
		err = h.Relay(ctx, "solo", "u1", "anyone there?")
		assert.ErrorIs(t, err, domain.ErrPeerUnavailable)
	})

	t.Run("joiner connection closed", func(t *testing.T) {
		_, b := pairedSession(t, h)
		b.close()
		err := h.Relay(ctx, "s1", "u1", "hello?")
		assert.ErrorIs(t, err, domain.ErrPeerUnavailable)
	})
}

func TestHeartbeat_AlwaysEchoes(t *testing.T) {
	clock := newFakeClock()
	h := hub.New(hub.WithClock(clock.Now))

	// Never-initialized session id still echoes.
	echo := h.Heartbeat("ghost", "u9")
	assert.Equal(t, domain.TypeHeartbeat, echo.Type)
	assert.Equal(t, "ghost", echo.SessionID)
	assert.Equal(t, "u9", echo.UserID)
	assert.Equal(t, clock.Now().UnixMilli(), echo.Timestamp)

	// Ended session id too.
	pairedSession(t, h)
	require.NoError(t, h.End(context.Background(), "s1"))
	echo = h.Heartbeat("s1", "u1")
	assert.Equal(t, domain.TypeHeartbeat, echo.Type)
}

func TestEnd_TeardownAndIdempotency(t *testing.T) {
	h := hub.New()
	a, b := pairedSession(t, h)
	ctx := context.Background()

	require.NoError(t, h.End(ctx, "s1"))

	for _, p := range []*fakePeer{a, b} {
		notice := p.last(t)
		assert.Equal(t, domain.TypeEndSession, notice.Type)
		assert.Equal(t, "s1", notice.SessionID)
	}
	assert.Equal(t, 0, h.Count())

	// Ended session behaves as not found afterwards.
	assert.ErrorIs(t, h.End(ctx, "s1"), domain.ErrSessionNotFound)
	assert.ErrorIs(t, h.Relay(ctx, "s1", "u1", "late"), domain.ErrSessionNotFound)

	// A fresh init on the same id starts a brand-new session, not a rejoin.
	joined, err := h.Init(ctx, "s1", "u3", &fakePeer{})
	require.NoError(t, err)
	assert.False(t, joined, "u3 is the initiator of the new session")
}

func TestDisconnect_EndsSession(t *testing.T) {
	h := hub.New()
	a, b := pairedSession(t, h)
	ctx := context.Background()

	b.close()
	h.Disconnect(ctx, "u2")

	notice := a.last(t)
	assert.Equal(t, domain.TypeEndSession, notice.Type)
	assert.Equal(t, "s1", notice.SessionID)
	assert.Equal(t, 0, h.Count())

	// Closed peer got nothing new; it is presumed gone.
	for _, msg := range b.messages() {
		assert.NotEqual(t, domain.TypeEndSession, msg.Type)
	}
}

func TestDisconnect_NoSessionIsSilent(t *testing.T) {
	h := hub.New()
	// Connection closed before ever sending init: nothing to do, no panic.
	h.Disconnect(context.Background(), "stranger")
	assert.Equal(t, 0, h.Count())
}

func TestReap_AgeThreshold(t *testing.T) {
	clock := newFakeClock()
	h := hub.New(
		hub.WithClock(clock.Now),
		hub.WithIdleAfter(30*time.Minute),
	)
	a, b := pairedSession(t, h)
	ctx := context.Background()

	// Just under the threshold: still present.
	clock.Advance(30*time.Minute - time.Second)
	h.Reap(ctx)
	assert.Equal(t, 1, h.Count())

	// Relay activity does not extend the lifetime: reaping is by age.
	require.NoError(t, h.Relay(ctx, "s1", "u1", "still chatty"))

	// Just past the threshold: gone, with end notices delivered.
	clock.Advance(2 * time.Second)
	h.Reap(ctx)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, domain.TypeEndSession, a.last(t).Type)
	assert.Equal(t, domain.TypeEndSession, b.last(t).Type)
}

func TestEndAll(t *testing.T) {
	h := hub.New()
	ctx := context.Background()

	a := &fakePeer{}
	_, err := h.Init(ctx, "s1", "u1", a)
	require.NoError(t, err)
	c := &fakePeer{}
	_, err = h.Init(ctx, "s2", "u3", c)
	require.NoError(t, err)

	h.EndAll(ctx)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, domain.TypeEndSession, a.last(t).Type)
	assert.Equal(t, domain.TypeEndSession, c.last(t).Type)
}

func TestDirectoryMirroring(t *testing.T) {
	store := memory.NewStore()
	h := hub.New(hub.WithDirectory(store))
	ctx := context.Background()

	pairedSession(t, h)

	record, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", record.InitiatorID)
	assert.Equal(t, "u2", record.JoinerID)
	assert.True(t, record.Active)

	require.NoError(t, h.End(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestConcurrentTraffic(t *testing.T) {
	// Hammer one session from both sides while a reaper loop runs; the
	// single registry lock must keep this safe.
	clock := newFakeClock()
	h := hub.New(hub.WithClock(clock.Now))
	pairedSession(t, h)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Relay(ctx, "s1", sender, "x")
			}
		}([]string{"u1", "u2"}[i%2])
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			h.Reap(ctx)
		}
	}()
	wg.Wait()

	assert.Equal(t, 1, h.Count())
}
