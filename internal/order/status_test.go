package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayMapping(t *testing.T) {
	require.Equal(t, DisplayStatus{Label: "New", Bucket: "new", Tone: ToneInfo}, Display(StatusSent))
	require.Equal(t, "Negotiating", Display(StatusInNegotiation).Label)
	require.Equal(t, ToneSuccess, Display(StatusAccepted).Tone)
	require.Equal(t, ToneDanger, Display(StatusRejected).Tone)
	require.Equal(t, "Completed", Display(StatusCompleted).Label)
}

func TestDisplayUnknownStatusFallsBack(t *testing.T) {
	d := Display(Status("on_hold"))
	require.Equal(t, "on_hold", d.Label)
	require.Equal(t, "on_hold", d.Bucket)
	require.Equal(t, ToneNeutral, d.Tone)
}

func TestInvoiceEligible(t *testing.T) {
	eligible := []Status{StatusAccepted, StatusInProgress, StatusShipped, StatusDelivered, StatusCompleted}
	for _, s := range eligible {
		require.True(t, s.InvoiceEligible(), s)
	}
	for _, s := range []Status{StatusDraft, StatusSent, StatusInNegotiation, StatusRejected} {
		require.False(t, s.InvoiceEligible(), s)
	}
}

func TestTerminal(t *testing.T) {
	require.True(t, StatusRejected.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusInNegotiation.Terminal())
}
