package order

import "time"

// Ledger rules. The negotiation ledger is append-only and ordered by
// server-assigned timestamps; these helpers derive amounts from it and
// validate appends before they commit.

// CurrentAskingAmount returns the amount currently on the table: the most
// recent offer/counter_offer, or the original quote when nobody has countered.
func CurrentAskingAmount(o PurchaseOrder, ledger []NegotiationEvent) float64 {
	if last := LatestOffer(ledger); last != nil && last.Amount != nil {
		return *last.Amount
	}
	return o.TotalAmount
}

// AcceptedAmount resolves the amount an accept locks in as finalAmount: the
// outstanding offer when one exists, the original quote when accepting
// directly from sent.
func AcceptedAmount(o PurchaseOrder, ledger []NegotiationEvent) float64 {
	return CurrentAskingAmount(o, ledger)
}

// ValidateAppend checks that event ev may be appended to the ledger of an
// order in the given status. The timestamp rule is the concurrency tie-break:
// a write whose server timestamp is not strictly newer than the latest
// committed entry lost the race and must be resubmitted against fresh state.
func ValidateAppend(status Status, ledger []NegotiationEvent, ev NegotiationEvent) error {
	if terminalLedger(ledger) {
		return ErrInvalidTransition
	}
	if ev.Kind.RequiresAmount() {
		if ev.Amount == nil || *ev.Amount < 0 {
			return ErrInvalidAmount
		}
	}
	switch ev.Kind {
	case KindOffer, KindCounterOffer:
		if status != StatusSent && status != StatusInNegotiation {
			return ErrInvalidTransition
		}
	case KindAccept, KindReject:
		if status != StatusSent && status != StatusInNegotiation {
			return ErrInvalidTransition
		}
	case KindMessage:
		if status.Terminal() {
			return ErrInvalidTransition
		}
	default:
		return ErrValidation
	}
	if latest := latestTimestamp(ledger); !latest.IsZero() && !ev.At.After(latest) {
		return ErrStaleNegotiation
	}
	return nil
}

// terminalLedger reports whether an accept or reject has already been
// recorded. Terminal entries close the ledger for good.
func terminalLedger(ledger []NegotiationEvent) bool {
	for _, ev := range ledger {
		if ev.Kind == KindAccept || ev.Kind == KindReject {
			return true
		}
	}
	return false
}

func latestTimestamp(ledger []NegotiationEvent) time.Time {
	var latest time.Time
	for _, ev := range ledger {
		if ev.At.After(latest) {
			latest = ev.At
		}
	}
	return latest
}
