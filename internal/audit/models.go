package audit

import "time"

// Action names the kind of mutation an event records.
type Action string

const (
	ActionUserRegistered         Action = "user.registered"
	ActionLoginStarted           Action = "auth.login_started"
	ActionLoginCompleted         Action = "auth.login_completed"
	ActionLoginFailed            Action = "auth.login_failed"
	ActionTokenRefreshed         Action = "auth.token_refreshed"
	ActionLogout                 Action = "auth.logout"
	ActionPasswordResetRequested Action = "auth.password_reset_requested"
	ActionPasswordReset          Action = "auth.password_reset"
	ActionPolicyApplied          Action = "policy.applied"
	ActionPolicyTransitioned     Action = "policy.transitioned"
	ActionPolicyActivated        Action = "policy.activated"
	ActionPolicyDeleted          Action = "policy.deleted"
	ActionClaimSubmitted         Action = "claim.submitted"
	ActionClaimReviewed          Action = "claim.reviewed"
	ActionPaymentInitiated       Action = "payment.initiated"
	ActionPaymentConfirmed       Action = "payment.confirmed"
	ActionDocumentUploaded       Action = "document.uploaded"
	ActionDocumentDeleted        Action = "document.deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorRole string    `json:"actor_role,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Device    string    `json:"device,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
