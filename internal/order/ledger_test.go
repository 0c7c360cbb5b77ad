package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func amt(v float64) *float64 { return &v }

func TestCurrentAskingAmount(t *testing.T) {
	po := PurchaseOrder{TotalAmount: 50000}
	require.Equal(t, 50000.0, CurrentAskingAmount(po, nil))

	ledger := []NegotiationEvent{
		{Kind: KindOffer, Actor: ActorVendor, Amount: amt(45000)},
		{Kind: KindMessage, Actor: ActorOwner},
		{Kind: KindCounterOffer, Actor: ActorOwner, Amount: amt(42000)},
	}
	require.Equal(t, 42000.0, CurrentAskingAmount(po, ledger))
}

func TestValidateAppendStatusRules(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	offer := NegotiationEvent{Kind: KindCounterOffer, Amount: amt(1000), At: base}

	require.NoError(t, ValidateAppend(StatusSent, nil, offer))
	require.NoError(t, ValidateAppend(StatusInNegotiation, nil, offer))
	require.ErrorIs(t, ValidateAppend(StatusDraft, nil, offer), ErrInvalidTransition)
	require.ErrorIs(t, ValidateAppend(StatusAccepted, nil, offer), ErrInvalidTransition)
	require.ErrorIs(t, ValidateAppend(StatusCompleted, nil, offer), ErrInvalidTransition)
}

func TestValidateAppendTerminalLedger(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger := []NegotiationEvent{
		{Kind: KindOffer, Amount: amt(900), At: base},
		{Kind: KindAccept, Amount: amt(900), At: base.Add(time.Minute)},
	}
	ev := NegotiationEvent{Kind: KindCounterOffer, Amount: amt(800), At: base.Add(time.Hour)}
	require.ErrorIs(t, ValidateAppend(StatusInNegotiation, ledger, ev), ErrInvalidTransition)
}

func TestValidateAppendAmountRequired(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.ErrorIs(t,
		ValidateAppend(StatusSent, nil, NegotiationEvent{Kind: KindOffer, At: at}),
		ErrInvalidAmount)
	require.ErrorIs(t,
		ValidateAppend(StatusSent, nil, NegotiationEvent{Kind: KindOffer, Amount: amt(-10), At: at}),
		ErrInvalidAmount)
	require.NoError(t,
		ValidateAppend(StatusSent, nil, NegotiationEvent{Kind: KindMessage, At: at}))
}

func TestValidateAppendStaleTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger := []NegotiationEvent{
		{Kind: KindOffer, Amount: amt(900), At: base.Add(2 * time.Minute)},
	}

	// same instant and earlier both lose the race
	stale := NegotiationEvent{Kind: KindCounterOffer, Amount: amt(850), At: base.Add(time.Minute)}
	require.ErrorIs(t, ValidateAppend(StatusInNegotiation, ledger, stale), ErrStaleNegotiation)

	tied := NegotiationEvent{Kind: KindCounterOffer, Amount: amt(850), At: base.Add(2 * time.Minute)}
	require.ErrorIs(t, ValidateAppend(StatusInNegotiation, ledger, tied), ErrStaleNegotiation)

	fresh := NegotiationEvent{Kind: KindCounterOffer, Amount: amt(850), At: base.Add(3 * time.Minute)}
	require.NoError(t, ValidateAppend(StatusInNegotiation, ledger, fresh))
}
