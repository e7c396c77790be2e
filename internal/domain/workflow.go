package domain

import "fmt"

// Trigger is a workflow event that moves a traveler between statuses.
// Create, Edit and Delete are not triggers: create always yields pending,
// edit never touches status and delete removes the record.
type Trigger string

const (
	TriggerApprove Trigger = "approve"
	TriggerDeny    Trigger = "deny"
	TriggerArchive Trigger = "archive"
)

// transition is one row of the workflow table.
type transition struct {
	to       Status
	approved *bool // nil leaves travel_approved unchanged
}

var (
	approvedTrue  = true
	approvedFalse = false
)

// transitions maps trigger -> current status -> outcome.
// Approve and deny are accepted from every status and re-apply active plus
// the flag. Deny deliberately lands in active, not in a rejected state.
var transitions = map[Trigger]map[Status]transition{
	TriggerApprove: {
		StatusPending:  {to: StatusActive, approved: &approvedTrue},
		StatusActive:   {to: StatusActive, approved: &approvedTrue},
		StatusHistoric: {to: StatusActive, approved: &approvedTrue},
	},
	TriggerDeny: {
		StatusPending:  {to: StatusActive, approved: &approvedFalse},
		StatusActive:   {to: StatusActive, approved: &approvedFalse},
		StatusHistoric: {to: StatusActive, approved: &approvedFalse},
	},
	TriggerArchive: {
		StatusActive:   {to: StatusHistoric},
		StatusHistoric: {to: StatusHistoric},
	},
}

// Change is the status and flag a trigger applies to a record.
type Change struct {
	To Status
	// Approved is the new travel_approved value, or nil to keep the current one.
	Approved *bool
}

// Next returns the change trigger applies to a record currently in from.
// It returns ErrInvalidState when the trigger is undefined for from.
func Next(from Status, trigger Trigger) (Change, error) {
	row, ok := transitions[trigger]
	if !ok {
		return Change{}, fmt.Errorf("%w: unknown trigger %q", ErrInvalidState, trigger)
	}
	t, ok := row[from]
	if !ok {
		return Change{}, fmt.Errorf("%w: cannot %s a %s traveler", ErrInvalidState, trigger, from)
	}
	c := Change{To: t.to}
	if t.approved != nil {
		v := *t.approved
		c.Approved = &v
	}
	return c, nil
}

// Apply returns a copy of t with the change applied.
func (c Change) Apply(t Traveler) Traveler {
	t.Status = c.To
	if c.Approved != nil {
		t.TravelApproved = *c.Approved
	}
	return t
}
