package domain

// Role represents user role in the system
type Role string

const (
	RoleResident  Role = "resident"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleResident, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// UserStatus represents whether an account may sign in
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// IsValid reports whether s is a known user status
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// CertificateStatus is the lifecycle state of a certificate request.
// Pending is the only non-terminal state.
type CertificateStatus string

const (
	CertificatePending  CertificateStatus = "Pending"
	CertificateApproved CertificateStatus = "Approved"
	CertificateDeclined CertificateStatus = "Declined"
)

// IsTerminal reports whether no further transition is allowed from s
func (s CertificateStatus) IsTerminal() bool {
	return s == CertificateApproved || s == CertificateDeclined
}

// CanTransitionTo reports whether a request in state s may move to next
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	return s == CertificatePending && next.IsTerminal()
}

// TokenPurpose selects which credential token slot on the user is used
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email-verification"
	PurposePasswordReset     TokenPurpose = "password-reset"
)

// Notification types
const (
	NotificationNewCertRequest = "new_cert_request"
	NotificationCertUpdate     = "cert_update"
	NotificationNewReport      = "new_report"
	NotificationReportUpdate   = "report_update"
)

// Inbox message types
const (
	InboxApprovedCertificate = "approved_certificate"
)
