package model

import (
	"fmt"
	"time"
)

// Status represents a voucher lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
	StatusVoided   Status = "voided"
)

var statusLabels = map[Status]string{
	StatusPending:  "Pending",
	StatusActive:   "Active",
	StatusRedeemed: "Redeemed",
	StatusExpired:  "Expired",
	StatusVoided:   "Voided",
}

// allowedTransitions is the closed transition table for voucher statuses.
// Redeemed -> Active covers ledger replacements that leave a positive balance.
// Voided -> Expired keeps expired-but-voided vouchers visible in expiry reports.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusActive: true, StatusVoided: true},
	StatusActive:   {StatusRedeemed: true, StatusVoided: true, StatusExpired: true},
	StatusRedeemed: {StatusActive: true},
	StatusVoided:   {StatusActive: true, StatusExpired: true},
}

// Label returns the human-readable form of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid returns true if the status is a known voucher status.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// CanTransition returns true if the transition table permits moving to the target status.
func (s Status) CanTransition(to Status) bool {
	return allowedTransitions[s][to]
}

// IsRedeemable returns true if the ledger accepts new entries in this status.
func (s Status) IsRedeemable() bool {
	return s == StatusActive
}

// StatusNote is one audit entry in a voucher's status log.
type StatusNote struct {
	Date time.Time `json:"date"`
	Note string    `json:"note"`
}

// TransitionNote builds the audit note recorded on every status transition.
// A caller-supplied reason, when present, prefixes the standard message.
func TransitionNote(from, to Status, reason string) string {
	note := fmt.Sprintf("Voucher status changed from %s to %s.", from.Label(), to.Label())
	if reason != "" {
		note = reason + " " + note
	}
	return note
}
