package forms

import (
	"errors"
	"fmt"
	"time"
)

type State string

const (
	StateDraft     State = "draft"
	StateSubmitted State = "submitted"
	StateApproved  State = "approved"
	StateFulfilled State = "fulfilled"
	StateRejected  State = "rejected"
	StateSigned    State = "signed"
	StateConfirmed State = "confirmed"
	StateResolved  State = "resolved"
)

// Flow — разрешённые переходы документа.
type Flow map[State][]State

var (
	RequestFlow = Flow{
		StateDraft:     {StateSubmitted},
		StateSubmitted: {StateApproved, StateRejected},
		StateApproved:  {StateFulfilled},
	}
	HandoverFlow = Flow{
		StateDraft: {StateSigned},
	}
	DamageFlow = Flow{
		StateDraft:     {StateConfirmed},
		StateConfirmed: {StateResolved},
	}
)

func (f Flow) Allows(from, to State) bool {
	for _, s := range f[from] {
		if s == to {
			return true
		}
	}
	return false
}

var ErrBadTransition = errors.New("forms: transition is not allowed")

// Request — заявка сотрудника на актив.
type Request struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	EmployeeID  int64     `json:"employee_id"`
	CategoryID  int64     `json:"category_id"`
	RequestDate time.Time `json:"request_date"`
	Reason      string    `json:"reason"`
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// Handover — акт передачи актива между сотрудниками.
type Handover struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	AssetID      int64     `json:"asset_id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	HandoverDate time.Time `json:"handover_date"`
	Notes        string    `json:"notes"`
	Signature    []byte    `json:"signature,omitempty"`
	State        State     `json:"state"`
}

type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageSystem   DamageType = "system"
	DamageLost     DamageType = "lost"
	DamageOther    DamageType = "other"
)

func (d DamageType) Valid() bool {
	switch d {
	case DamagePhysical, DamageSystem, DamageLost, DamageOther:
		return true
	}
	return false
}

type DamageReport struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	AssetID     int64      `json:"asset_id"`
	EmployeeID  int64      `json:"employee_id"`
	ReportDate  time.Time  `json:"report_date"`
	DamageType  DamageType `json:"damage_type"`
	Description string     `json:"description"`
	ActionTaken string     `json:"action_taken"`
	State       State      `json:"state"`
}

var romanMonths = [...]string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

func RomanMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return "I"
	}
	return romanMonths[m-1]
}

// DamageReportName: 0007/III/BA/IT/2024.
func DamageReportName(seq string, date time.Time, suffix string) string {
	return fmt.Sprintf("%s/%s/%s/%d", seq, RomanMonth(date.Month()), suffix, date.Year())
}
