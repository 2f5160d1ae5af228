package domain

import "time"

type VisitStatus string

const (
	VisitScheduled  VisitStatus = "scheduled"
	VisitCheckedIn  VisitStatus = "checked_in"
	VisitCheckedOut VisitStatus = "checked_out"
	VisitCancelled  VisitStatus = "cancelled"
)

func ParseVisitStatus(s string) (VisitStatus, bool) {
	switch VisitStatus(s) {
	case VisitScheduled, VisitCheckedIn, VisitCheckedOut, VisitCancelled:
		return VisitStatus(s), true
	default:
		return "", false
	}
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	switch ApprovalStatus(s) {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return ApprovalStatus(s), true
	default:
		return "", false
	}
}

type VisitType string

const (
	TypeScheduled VisitType = "scheduled"
	TypeWalkIn    VisitType = "walk-in"
)

func ParseVisitType(s string) (VisitType, bool) {
	switch VisitType(s) {
	case TypeScheduled, TypeWalkIn:
		return VisitType(s), true
	default:
		return "", false
	}
}

// Visit is the joined visit record returned by every read and write,
// with visitor and executive fields denormalized for display.
type Visit struct {
	ID        string      `json:"id"`
	VisitCode string      `json:"visit_code"`
	VisitType VisitType   `json:"visit_type"`
	Status    VisitStatus `json:"visit_status"`

	ScheduledDate time.Time `json:"scheduled_date"`
	TimeFrom      string    `json:"time_from"`
	TimeTo        string    `json:"time_to"`
	Purpose       string    `json:"purpose"`

	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	ApprovalTime    *time.Time     `json:"approval_time,omitempty"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`

	ActualCheckinTime  *time.Time `json:"actual_checkin_time,omitempty"`
	ActualCheckoutTime *time.Time `json:"actual_checkout_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	VisitorID      string `json:"visitor_id"`
	VisitorName    string `json:"visitor_name"`
	VisitorEmail   string `json:"visitor_email"`
	VisitorPhone   string `json:"visitor_phone"`
	VisitorCompany string `json:"visitor_company"`

	ExecutiveID         string `json:"executive_id"`
	ExecutivePosition   string `json:"executive_position"`
	ExecutiveName       string `json:"executive_name"`
	ExecutiveEmail      string `json:"executive_email"`
	ExecutiveDepartment string `json:"executive_department"`
}

// CreateVisitRequest carries the inbound fields for a new visit. The
// visitor is resolved by phone; the executive id may be a legacy value
// that the service substitutes.
type CreateVisitRequest struct {
	VisitorName    string    `json:"visitor_name"`
	VisitorEmail   string    `json:"visitor_email"`
	VisitorPhone   string    `json:"visitor_phone"`
	VisitorCompany string    `json:"visitor_company"`
	ExecutiveID    string    `json:"executive_id"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	TimeFrom       string    `json:"time_from"`
	TimeTo         string    `json:"time_to"`
	Purpose        string    `json:"purpose"`
	VisitType      VisitType `json:"visit_type"`
}

// VisitPatch is the partial update accepted by updateVisit. Nil fields
// are left untouched; at least one field must be set.
type VisitPatch struct {
	ApprovalStatus  *ApprovalStatus `json:"approval_status,omitempty"`
	ApprovalTime    *time.Time      `json:"approval_time,omitempty"`
	Status          *VisitStatus    `json:"visit_status,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
}

func (p VisitPatch) Empty() bool {
	return p.ApprovalStatus == nil && p.ApprovalTime == nil && p.Status == nil && p.RejectionReason == nil
}

// GateResult is the outcome of a gate scan.
type GateResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Visit  *Visit `json:"visit,omitempty"`
}

const (
	GateReasonNotFound  = "not found"
	GateReasonExpired   = "expired"
	GateReasonCancelled = "cancelled"
)
