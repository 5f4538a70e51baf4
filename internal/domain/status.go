package domain

import "fmt"

// Status is the closed set of order lifecycle states. The string
// values are persisted verbatim and are case-sensitive.
type Status string

const (
	StatusReceived        Status = "Received"
	StatusQuoteDownloaded Status = "QuoteDownloaded"
	StatusPending         Status = "Pending"
	StatusDocumentsPlaced Status = "DocumentsPlaced"
	StatusVerified        Status = "Verified"
	StatusAuthorized      Status = "Authorized"
	StatusRejected        Status = "Rejected"
	StatusCompleted       Status = "Completed"
	StatusBlocked         Status = "Blocked"
	StatusRateExpired     Status = "RateExpired"
)

var allStatuses = map[Status]struct{}{
	StatusReceived:        {},
	StatusQuoteDownloaded: {},
	StatusPending:         {},
	StatusDocumentsPlaced: {},
	StatusVerified:        {},
	StatusAuthorized:      {},
	StatusRejected:        {},
	StatusCompleted:       {},
	StatusBlocked:         {},
	StatusRateExpired:     {},
}

// triggerOnly holds the locked statuses: reachable only through their
// triggering action, never by direct staff selection. Authorized is
// included because it is reached only by the authorize action.
var triggerOnly = map[Status]struct{}{
	StatusQuoteDownloaded: {},
	StatusDocumentsPlaced: {},
	StatusAuthorized:      {},
}

// terminal statuses accept no further staff edits.
var terminal = map[Status]struct{}{
	StatusAuthorized: {},
	StatusCompleted:  {},
	StatusRejected:   {},
}

// Valid reports whether s is a member of the closed status enum.
func (s Status) Valid() bool {
	_, ok := allStatuses[s]
	return ok
}

// Terminal reports whether the review flow is finished for s.
func (s Status) Terminal() bool {
	_, ok := terminal[s]
	return ok
}

// TriggerOnly reports whether s may only be entered by its trigger.
func (s Status) TriggerOnly() bool {
	_, ok := triggerOnly[s]
	return ok
}

// Rate-override is allowed strictly before authorization.
func (s Status) RateLocked() bool {
	return s == StatusAuthorized || s == StatusCompleted
}

// Trigger is a system action that forces an order into a specific
// status regardless of where it currently sits.
type Trigger struct {
	Action string
	Target Status
}

var (
	// Quote generated and downloaded.
	TriggerQuoteDownloaded = Trigger{Action: "quote_downloaded", Target: StatusQuoteDownloaded}
	// Sender record successfully linked.
	TriggerSenderLinked = Trigger{Action: "sender_linked", Target: StatusPending}
	// Document set submitted.
	TriggerDocumentsPlaced = Trigger{Action: "documents_placed", Target: StatusDocumentsPlaced}
	// Authorize action confirmed.
	TriggerAuthorized = Trigger{Action: "authorized", Target: StatusAuthorized}
	// Rate-status review resolved as blocked.
	TriggerBlocked = Trigger{Action: "rate_blocked", Target: StatusBlocked}
	// Quote validity window elapsed before documents were placed.
	TriggerRateExpired = Trigger{Action: "rate_expired", Target: StatusRateExpired}
)

// StaffTransition validates a direct staff status edit. Locked
// statuses are never enterable this way and terminal orders accept no
// further edits; within the editable class the transition is flat.
func StaffTransition(current, target Status) error {
	if !current.Valid() {
		return fmt.Errorf("unknown current status %q", current)
	}
	if !target.Valid() {
		return invalidInput("status", fmt.Sprintf("unknown status %q", target))
	}
	if current.Terminal() {
		return fmt.Errorf("%w: order is %s", ErrLockedOrder, current)
	}
	if target.TriggerOnly() {
		return fmt.Errorf("%w: %s is only reachable by its trigger", ErrLockedOrder, target)
	}
	return nil
}

// ApplyTrigger validates a triggered transition and returns the next
// status. Triggers force the transition regardless of the current
// state; review resolutions (authorize, block) additionally require a
// not-yet-finalized order.
func ApplyTrigger(current Status, trg Trigger) (Status, error) {
	if !current.Valid() {
		return current, fmt.Errorf("unknown current status %q", current)
	}
	switch trg.Target {
	case StatusAuthorized, StatusBlocked:
		if current.Terminal() {
			return current, fmt.Errorf("%w: cannot resolve a %s order", ErrLockedOrder, current)
		}
	}
	return trg.Target, nil
}
