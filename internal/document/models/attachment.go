package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

// RelatedKind names the entity an attachment belongs to.
type RelatedKind string

const (
	RelatedClaim   RelatedKind = "claim"
	RelatedPolicy  RelatedKind = "policy"
	RelatedProfile RelatedKind = "profile"
)

// Valid reports whether the kind is known.
func (k RelatedKind) Valid() bool {
	switch k {
	case RelatedClaim, RelatedPolicy, RelatedProfile:
		return true
	}
	return false
}

// Attachment is file metadata. The bytes live in the blob store under
// StoredName; the metadata store carries the ownership and linkage.
type Attachment struct {
	ID          uuid.UUID   `json:"id"`
	FileName    string      `json:"fileName"`
	StoredName  string      `json:"-"`
	ContentType string      `json:"contentType"`
	Size        int64       `json:"size"`
	UploadedBy  uuid.UUID   `json:"uploadedBy"`
	RelatedTo   RelatedKind `json:"relatedTo"`
	RelatedID   uuid.UUID   `json:"relatedId"`
	UploadedAt  time.Time   `json:"uploadedAt"`
}

// New validates and constructs attachment metadata.
func New(id uuid.UUID, fileName, storedName, contentType string, size int64, uploadedBy uuid.UUID, relatedTo RelatedKind, relatedID uuid.UUID, now time.Time) (*Attachment, error) {
	if fileName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if !relatedTo.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "relatedTo must be one of claim, policy, profile")
	}
	if relatedID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "relatedId is required")
	}
	return &Attachment{
		ID:          id,
		FileName:    fileName,
		StoredName:  storedName,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  uploadedBy,
		RelatedTo:   relatedTo,
		RelatedID:   relatedID,
		UploadedAt:  now,
	}, nil
}
