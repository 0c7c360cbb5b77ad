package order

// Tone is the semantic class a status renders with. Presentation data only;
// exposed here so every consumer reads one table instead of re-implementing
// the mapping.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneNeutral Tone = "neutral"
)

// DisplayStatus is the UI-facing rendering of a stored status.
type DisplayStatus struct {
	Label  string `json:"label"`
	Bucket string `json:"bucket"`
	Tone   Tone   `json:"tone"`
}

// displayTable maps stored statuses to their display form. A stored "sent"
// order is presented to users as a new quotation.
var displayTable = map[Status]DisplayStatus{
	StatusDraft:         {Label: "Draft", Bucket: "draft", Tone: ToneNeutral},
	StatusSent:          {Label: "New", Bucket: "new", Tone: ToneInfo},
	StatusInNegotiation: {Label: "Negotiating", Bucket: "in_negotiation", Tone: ToneInfo},
	StatusAccepted:      {Label: "Accepted", Bucket: "accepted", Tone: ToneSuccess},
	StatusRejected:      {Label: "Rejected", Bucket: "rejected", Tone: ToneDanger},
	StatusInProgress:    {Label: "In Progress", Bucket: "in_progress", Tone: ToneInfo},
	StatusShipped:       {Label: "Shipped", Bucket: "shipped", Tone: ToneInfo},
	StatusDelivered:     {Label: "Delivered", Bucket: "delivered", Tone: ToneSuccess},
	StatusCompleted:     {Label: "Completed", Bucket: "completed", Tone: ToneSuccess},
}

// Display returns the display form for a stored status. Unknown statuses fall
// back to their raw value with a neutral tone so newer backend statuses render
// instead of failing.
func Display(s Status) DisplayStatus {
	if d, ok := displayTable[s]; ok {
		return d
	}
	return DisplayStatus{Label: string(s), Bucket: string(s), Tone: ToneNeutral}
}

// InvoiceEligible reports whether a vendor invoice may be raised against an
// order in this status.
func (s Status) InvoiceEligible() bool {
	switch s {
	case StatusAccepted, StatusInProgress, StatusShipped, StatusDelivered, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}
