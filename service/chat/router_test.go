package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DevChat/tools/errs"
)

func routerFixture() (*Registry, *fakeDirectory, *fakeStore, *Router) {
	reg := NewRegistry()
	dir := newFakeDirectory()
	store := &fakeStore{}
	return reg, dir, store, NewRouter(reg, dir, store)
}

func alice() UserRef { return UserRef{UserID: "A", Username: "alice"} }

func TestSendToLiveRecipient(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("B", "bob")

	seq := &seqClock{}
	store.seq = seq
	bob := newFakeTransport("cb")
	bob.seq = seq
	reg.Admit("B", bob)

	res, err := router.Send(context.Background(), alice(), "B", "hi")
	require.NoError(t, err)
	assert.True(t, res.Delivered)

	// Exactly one record and one push, persist before push.
	require.Len(t, store.appends, 1)
	assert.Equal(t, "A", store.appends[0].from)
	assert.Equal(t, "B", store.appends[0].to)
	assert.Equal(t, "hi", store.appends[0].text)

	msgs := bob.eventsOfType(EvtMessage)
	require.Len(t, msgs, 1)
	payload := msgs[0].Data.(*MessagePayload)
	assert.Equal(t, "alice", payload.From.Username)
	assert.Equal(t, "hi", payload.Text)
	assert.Equal(t, store.appends[0].createdAt, payload.CreatedAt)
	assert.Greater(t, bob.pushed[0].seq, store.appends[0].seq, "message must be persisted before it is pushed")
}

func TestSendToOfflineRecipient(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("C", "carol")

	sender := newFakeTransport("ca")
	reg.Admit("A", sender)

	res, err := router.Send(context.Background(), alice(), "C", "hi")
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	// Stored exactly once even though nobody was there.
	require.Len(t, store.appends, 1)

	notices := sender.eventsOfType(EvtPartnerOffline)
	require.Len(t, notices, 1)
	payload := notices[0].Data.(*PartnerOfflinePayload)
	assert.Equal(t, "C", payload.UserID)
	assert.Equal(t, "carol", payload.Username)
	assert.NotEmpty(t, payload.Message)
}

func TestSendToOfflineRecipientSenderGoneToo(t *testing.T) {
	_, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("C", "carol")

	// Sender has no live session either; the notice is silently dropped.
	res, err := router.Send(context.Background(), alice(), "C", "hi")
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Len(t, store.appends, 1)
}

func TestSendToUnknownRecipient(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	sender := newFakeTransport("ca")
	reg.Admit("A", sender)

	res, err := router.Send(context.Background(), alice(), "nobody", "hi")
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	// Unknown is not offline: nothing stored, no notice.
	assert.Empty(t, store.appends)
	assert.Empty(t, sender.events())
}

func TestSendPersistenceFailure(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("B", "bob")
	store.err = errors.New("disk full")

	bob := newFakeTransport("cb")
	reg.Admit("B", bob)

	_, err := router.Send(context.Background(), alice(), "B", "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPersistenceFailed))

	// No delivery attempt after a failed write.
	assert.Empty(t, bob.events())
}

func TestSendStaleRegistryEntry(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("B", "bob")

	sender := newFakeTransport("ca")
	reg.Admit("A", sender)

	// B is registered but its socket already died without an eviction.
	stale := newFakeTransport("cb")
	stale.alive = false
	reg.Admit("B", stale)

	res, err := router.Send(context.Background(), alice(), "B", "hi")
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	require.Len(t, store.appends, 1)
	assert.Len(t, sender.eventsOfType(EvtPartnerOffline), 1)

	// Self-healed: the stale entry is gone.
	_, ok := reg.Lookup("B")
	assert.False(t, ok)
}

func TestSendToLaggingRecipient(t *testing.T) {
	reg, dir, store, router := routerFixture()
	dir.addUser("A", "alice")
	dir.addUser("B", "bob")

	sender := newFakeTransport("ca")
	reg.Admit("A", sender)
	bob := newFakeTransport("cb")
	bob.pushErr = ErrSlowClient
	reg.Admit("B", bob)

	res, err := router.Send(context.Background(), alice(), "B", "hi")
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	// Present-but-lagging is not offline: message stored, no notice.
	require.Len(t, store.appends, 1)
	assert.Empty(t, sender.eventsOfType(EvtPartnerOffline))

	// The entry stays; the client is alive, just slow.
	_, ok := reg.Lookup("B")
	assert.True(t, ok)
}
