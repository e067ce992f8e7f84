// Package resolver answers attachment liveness checks for the orphan sweep.
package resolver

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"covergate/internal/document/models"
	identity "covergate/internal/identity/models"
	policymodels "covergate/internal/policy/models"
	"covergate/pkg/platform/sentinel"
)

// ClaimReader is the slice of the claim store liveness checks need.
type ClaimReader interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByAttachmentID(ctx context.Context, attachmentID uuid.UUID) (bool, error)
}

// PolicyReader resolves policy references.
type PolicyReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*policymodels.Policy, error)
}

// UserReader resolves profile references.
type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Resolver routes attachment liveness checks to the owning store.
type Resolver struct {
	policies PolicyReader
	claims   ClaimReader
	users    UserReader
}

// New constructs a Resolver over the given stores.
func New(policies PolicyReader, claims ClaimReader, users UserReader) *Resolver {
	return &Resolver{policies: policies, claims: claims, users: users}
}

// Exists reports whether the attachment is still referenced by a live entity.
// For claim attachments the recorded reference is not the whole story: a
// claim submission stores files against the policy id first and repoints
// them afterwards, so when the recorded id does not resolve as a claim the
// attachment may still be listed by a claim whose relink never ran. Such an
// attachment is claim evidence and must not be swept.
func (r *Resolver) Exists(ctx context.Context, attachment *models.Attachment) (bool, error) {
	switch attachment.RelatedTo {
	case models.RelatedClaim:
		ok, err := r.claims.ExistsByID(ctx, attachment.RelatedID)
		if err != nil || ok {
			return ok, err
		}
		return r.claims.ExistsByAttachmentID(ctx, attachment.ID)
	case models.RelatedPolicy:
		return existsVia(func() (any, error) { return r.policies.FindByID(ctx, attachment.RelatedID) })
	case models.RelatedProfile:
		return existsVia(func() (any, error) { return r.users.FindByID(ctx, attachment.RelatedID) })
	default:
		return false, nil
	}
}

func existsVia(find func() (any, error)) (bool, error) {
	if _, err := find(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
