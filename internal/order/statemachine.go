package order

// Event enumerates the actions that move an order through its lifecycle.
type Event string

const (
	EventDispatch  Event = "dispatch"
	EventCounter   Event = "counter"
	EventAccept    Event = "accept"
	EventReject    Event = "reject"
	EventBeginWork Event = "begin_work"
	EventShip      Event = "ship"
	EventDeliver   Event = "deliver"
	EventClose     Event = "close"
)

type transitionKey struct {
	From  Status
	Event Event
}

type transitionRule struct {
	To     Status
	Actors []Actor
}

// transitions is the single authority for which event is legal from which
// status and for whom. From "sent" only the vendor may respond; once both
// sides are negotiating either may counter or reject, while accept carries
// the additional last-offerer guard applied in GuardAccept.
var transitions = map[transitionKey]transitionRule{
	{StatusDraft, EventDispatch}:        {To: StatusSent, Actors: []Actor{ActorOwner}},
	{StatusSent, EventCounter}:          {To: StatusInNegotiation, Actors: []Actor{ActorVendor}},
	{StatusSent, EventAccept}:           {To: StatusAccepted, Actors: []Actor{ActorVendor}},
	{StatusSent, EventReject}:           {To: StatusRejected, Actors: []Actor{ActorVendor}},
	{StatusInNegotiation, EventCounter}: {To: StatusInNegotiation, Actors: []Actor{ActorOwner, ActorVendor}},
	{StatusInNegotiation, EventAccept}:  {To: StatusAccepted, Actors: []Actor{ActorOwner, ActorVendor}},
	{StatusInNegotiation, EventReject}:  {To: StatusRejected, Actors: []Actor{ActorOwner, ActorVendor}},
	{StatusAccepted, EventBeginWork}:    {To: StatusInProgress, Actors: []Actor{ActorOwner}},
	{StatusInProgress, EventShip}:       {To: StatusShipped, Actors: []Actor{ActorVendor}},
	{StatusShipped, EventDeliver}:       {To: StatusDelivered, Actors: []Actor{ActorVendor}},
	{StatusDelivered, EventClose}:       {To: StatusCompleted, Actors: []Actor{ActorOwner}},
}

// NextStatus resolves the target status for an event requested by an actor.
// Returns ErrInvalidTransition when the event is not listed for the current
// status or the actor is not permitted to trigger it.
func NextStatus(from Status, event Event, actor Actor) (Status, error) {
	rule, ok := transitions[transitionKey{From: from, Event: event}]
	if !ok {
		return "", ErrInvalidTransition
	}
	for _, a := range rule.Actors {
		if a == actor {
			return rule.To, nil
		}
	}
	return "", ErrInvalidTransition
}

// NegotiationEventFor maps a lifecycle event to the ledger entry kind it
// records, if any. Fulfillment events are pure status changes.
func NegotiationEventFor(event Event, ledger []NegotiationEvent) (EventKind, bool) {
	switch event {
	case EventCounter:
		if len(activeOffers(ledger)) == 0 {
			return KindOffer, true
		}
		return KindCounterOffer, true
	case EventAccept:
		return KindAccept, true
	case EventReject:
		return KindReject, true
	}
	return "", false
}

// GuardAccept rejects an accept requested by the actor who authored the most
// recent outstanding offer. A negotiation needs two sides; only the other
// party can close it.
func GuardAccept(ledger []NegotiationEvent, actor Actor) error {
	last := LatestOffer(ledger)
	if last == nil {
		return nil
	}
	if last.Actor == actor {
		return ErrSelfAcceptance
	}
	return nil
}

// LatestOffer returns the most recent offer/counter_offer in the ledger, or
// nil when no amount has been put forward yet.
func LatestOffer(ledger []NegotiationEvent) *NegotiationEvent {
	for i := len(ledger) - 1; i >= 0; i-- {
		if ledger[i].Kind == KindOffer || ledger[i].Kind == KindCounterOffer {
			return &ledger[i]
		}
	}
	return nil
}

func activeOffers(ledger []NegotiationEvent) []NegotiationEvent {
	var offers []NegotiationEvent
	for _, ev := range ledger {
		if ev.Kind == KindOffer || ev.Kind == KindCounterOffer {
			offers = append(offers, ev)
		}
	}
	return offers
}
