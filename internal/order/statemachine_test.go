package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextStatusLegalTransitions(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		actor Actor
		want  Status
	}{
		{StatusDraft, EventDispatch, ActorOwner, StatusSent},
		{StatusSent, EventCounter, ActorVendor, StatusInNegotiation},
		{StatusSent, EventAccept, ActorVendor, StatusAccepted},
		{StatusSent, EventReject, ActorVendor, StatusRejected},
		{StatusInNegotiation, EventCounter, ActorOwner, StatusInNegotiation},
		{StatusInNegotiation, EventCounter, ActorVendor, StatusInNegotiation},
		{StatusInNegotiation, EventAccept, ActorOwner, StatusAccepted},
		{StatusInNegotiation, EventAccept, ActorVendor, StatusAccepted},
		{StatusInNegotiation, EventReject, ActorOwner, StatusRejected},
		{StatusInNegotiation, EventReject, ActorVendor, StatusRejected},
		{StatusAccepted, EventBeginWork, ActorOwner, StatusInProgress},
		{StatusInProgress, EventShip, ActorVendor, StatusShipped},
		{StatusShipped, EventDeliver, ActorVendor, StatusDelivered},
		{StatusDelivered, EventClose, ActorOwner, StatusCompleted},
	}
	for _, tc := range cases {
		got, err := NextStatus(tc.from, tc.event, tc.actor)
		require.NoError(t, err, "%s/%s by %s", tc.from, tc.event, tc.actor)
		require.Equal(t, tc.want, got)
	}
}

func TestNextStatusRejectsUnlistedPairs(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		actor Actor
	}{
		{StatusDraft, EventAccept, ActorVendor},
		{StatusDraft, EventDispatch, ActorVendor}, // wrong actor
		{StatusSent, EventCounter, ActorOwner},    // owner cannot counter own quote
		{StatusSent, EventDispatch, ActorOwner},
		{StatusAccepted, EventAccept, ActorVendor},
		{StatusAccepted, EventBeginWork, ActorVendor},
		{StatusRejected, EventCounter, ActorVendor},
		{StatusCompleted, EventClose, ActorOwner},
		{StatusInProgress, EventShip, ActorOwner},
		{Status("mystery"), EventAccept, ActorVendor},
	}
	for _, tc := range cases {
		_, err := NextStatus(tc.from, tc.event, tc.actor)
		require.ErrorIs(t, err, ErrInvalidTransition, "%s/%s by %s", tc.from, tc.event, tc.actor)
	}
}

func TestGuardAccept(t *testing.T) {
	amount := 45000.0
	ledger := []NegotiationEvent{
		{Kind: KindOffer, Actor: ActorVendor, Amount: &amount},
	}
	require.ErrorIs(t, GuardAccept(ledger, ActorVendor), ErrSelfAcceptance)
	require.NoError(t, GuardAccept(ledger, ActorOwner))

	// no outstanding offer: direct accept of the original quote
	require.NoError(t, GuardAccept(nil, ActorVendor))

	// trailing messages do not change who owns the outstanding offer
	ledger = append(ledger, NegotiationEvent{Kind: KindMessage, Actor: ActorOwner})
	require.ErrorIs(t, GuardAccept(ledger, ActorVendor), ErrSelfAcceptance)
}

func TestNegotiationEventForFirstOfferKind(t *testing.T) {
	kind, ok := NegotiationEventFor(EventCounter, nil)
	require.True(t, ok)
	require.Equal(t, KindOffer, kind)

	amount := 100.0
	kind, ok = NegotiationEventFor(EventCounter, []NegotiationEvent{{Kind: KindOffer, Amount: &amount}})
	require.True(t, ok)
	require.Equal(t, KindCounterOffer, kind)

	_, ok = NegotiationEventFor(EventShip, nil)
	require.False(t, ok)
}
