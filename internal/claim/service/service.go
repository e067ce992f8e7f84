// Package service implements claim submission and adjudication. Attachments
// are linked in two phases: stored against the policy id first, then
// repointed at the claim once it exists. The orphan sweeper covers the
// window where the second phase never ran.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"covergate/internal/accesscontrol"
	"covergate/internal/audit"
	"covergate/internal/claim/models"
	"covergate/internal/claim/risk"
	"covergate/internal/claim/store"
	docmodels "covergate/internal/document/models"
	identity "covergate/internal/identity/models"
	"covergate/internal/platform/metrics"
	policymodels "covergate/internal/policy/models"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// maxUploads caps the number of files accepted per claim.
const maxUploads = 5

// ClaimStore is the slice of the claim store this service needs.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	Update(ctx context.Context, claim *models.Claim) error
	List(ctx context.Context, filter store.Filter) ([]*models.Claim, error)
}

// PolicyReader resolves the policy a claim is filed against.
type PolicyReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*policymodels.Policy, error)
}

// Attachments is the slice of the document service the claim flow needs.
type Attachments interface {
	Save(ctx context.Context, uploadedBy uuid.UUID, fileName string, relatedTo docmodels.RelatedKind, relatedID uuid.UUID, r io.Reader) (*docmodels.Attachment, error)
	Relink(ctx context.Context, ids []uuid.UUID, relatedTo docmodels.RelatedKind, relatedID uuid.UUID) error
}

// AuditPublisher records security-relevant mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates claim submission and review.
type Service struct {
	claims      ClaimStore
	policies    PolicyReader
	attachments Attachments
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(claims ClaimStore, policies PolicyReader, attachments Attachments, opts ...Option) *Service {
	s := &Service{
		claims:      claims,
		policies:    policies,
		attachments: attachments,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the claim submission payload.
type CreateInput struct {
	PolicyID     uuid.UUID `json:"policyId"`
	Amount       float64   `json:"amount"`
	IncidentDate time.Time `json:"incidentDate"`
	Description  string    `json:"description"`
}

// Upload is one file submitted alongside a claim.
type Upload struct {
	FileName string
	Content  io.Reader
}

// CreateResult pairs the claim with the risk assessment for the response.
type CreateResult struct {
	Claim      *models.Claim   `json:"claim"`
	Assessment risk.Assessment `json:"aiAnalysis"`
}

// Create submits a claim. The referenced policy must resolve; a dangling
// reference is the caller's mistake (BadRequest), not a missing resource.
func (s *Service) Create(ctx context.Context, caller requestcontext.Principal, input CreateInput, uploads []Upload) (*CreateResult, error) {
	if len(uploads) > maxUploads {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d files per claim", maxUploads)
	}

	policy, err := s.policies.FindByID(ctx, input.PolicyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid policy reference")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve policy")
	}

	now := s.now()
	assessment := risk.Score(input.Amount, input.IncidentDate, now)

	// Validate the claim before any attachment is persisted so a rejected
	// submission leaves nothing on disk.
	claim, err := models.New(uuid.New(), policy.ID, caller.UserID, policy.AgentID,
		input.Amount, input.IncidentDate, input.Description,
		assessment.Score, assessment.Factors, nil, now)
	if err != nil {
		return nil, err
	}

	// Phase one: persist attachments against the policy id. The claim does
	// not exist yet, so this provisional link keeps the files reachable if
	// creation fails partway.
	attachmentIDs := make([]uuid.UUID, 0, len(uploads))
	for _, upload := range uploads {
		attachment, err := s.attachments.Save(ctx, caller.UserID, upload.FileName, docmodels.RelatedClaim, policy.ID, upload.Content)
		if err != nil {
			return nil, err
		}
		attachmentIDs = append(attachmentIDs, attachment.ID)
	}
	claim.AttachmentIDs = attachmentIDs

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
	}

	// Phase two: repoint the attachments at the claim. On failure the
	// provisional link stands; the sweeper spares any attachment a claim
	// still lists, so this is retried at most by hand. Log loudly.
	if len(attachmentIDs) > 0 {
		if err := s.attachments.Relink(ctx, attachmentIDs, docmodels.RelatedClaim, claim.ID); err != nil {
			s.logger.ErrorContext(ctx, "claim attachments left provisionally linked",
				"claim_id", claim.ID, "error", err)
		}
	}

	s.emit(ctx, audit.Event{Action: audit.ActionClaimSubmitted, Subject: claim.ID.String()})
	if s.metrics != nil {
		s.metrics.ClaimsCreated.Inc()
	}
	return &CreateResult{Claim: claim, Assessment: assessment}, nil
}

// Get returns a single claim, Forbidden (not NotFound) when the caller may
// not read it.
func (s *Service) Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Claim, error) {
	claim, err := s.claims.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if err := accesscontrol.CanReadEntity(caller, claim.CustomerID, claim.AgentID); err != nil {
		return nil, err
	}
	return claim, nil
}

// List returns the claims the caller may see.
func (s *Service) List(ctx context.Context, caller requestcontext.Principal) ([]*models.Claim, error) {
	claims, err := s.claims.List(ctx, scopeFilter(accesscontrol.ListScope(caller)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// ListAll returns every claim. Staff only.
func (s *Service) ListAll(ctx context.Context, caller requestcontext.Principal) ([]*models.Claim, error) {
	if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapClaimListAll); err != nil {
		return nil, err
	}
	claims, err := s.claims.List(ctx, store.Filter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// Review records an adjudication decision. ADMIN only; a re-review
// overwrites the previous decision.
func (s *Service) Review(ctx context.Context, caller requestcontext.Principal, id uuid.UUID, to models.Status) (*models.Claim, error) {
	if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapClaimReview); err != nil {
		return nil, err
	}

	claim, err := s.claims.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	if err := claim.Review(to, caller.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionClaimReviewed, Subject: claim.ID.String(), Decision: string(to)})
	if s.metrics != nil {
		s.metrics.ClaimsReviewed.WithLabelValues(string(to)).Inc()
	}
	return claim, nil
}

func scopeFilter(scope accesscontrol.Scope) store.Filter {
	switch scope.Kind {
	case accesscontrol.ScopeByCustomer:
		id := scope.ID
		return store.Filter{CustomerID: &id}
	case accesscontrol.ScopeByAgent:
		id := scope.ID
		return store.Filter{AgentID: &id}
	default:
		return store.Filter{}
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
