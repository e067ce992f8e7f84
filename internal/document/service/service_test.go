package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"covergate/internal/document/blob"
	"covergate/internal/document/models"
	"covergate/internal/document/store"
	identity "covergate/internal/identity/models"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngBytes(size int) []byte {
	buf := make([]byte, size)
	copy(buf, pngHeader)
	return buf
}

// mapResolver marks which related ids still exist.
type mapResolver struct {
	live map[uuid.UUID]bool
}

func (r *mapResolver) Exists(_ context.Context, attachment *models.Attachment) (bool, error) {
	return r.live[attachment.RelatedID], nil
}

type DocumentServiceSuite struct {
	suite.Suite
	svc      *Service
	meta     *store.InMemoryAttachmentStore
	resolver *mapResolver
	current  time.Time
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	blobs, err := blob.NewDisk(s.T().TempDir(), 5<<20)
	require.NoError(s.T(), err)

	s.meta = store.NewInMemory()
	s.resolver = &mapResolver{live: make(map[uuid.UUID]bool)}
	s.current = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	s.svc = New(blobs, s.meta,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithResolver(s.resolver),
		WithClock(func() time.Time { return s.current }),
	)
}

func owner() requestcontext.Principal {
	return requestcontext.Principal{UserID: uuid.New(), Role: string(identity.RoleCustomer)}
}

func (s *DocumentServiceSuite) TestSaveAndRoundTrip() {
	caller := owner()
	related := uuid.New()

	attachment, err := s.svc.Save(context.Background(), caller.UserID, "photo.png", models.RelatedClaim, related, bytes.NewReader(pngBytes(200)))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "image/png", attachment.ContentType)
	assert.Equal(s.T(), int64(200), attachment.Size)

	got, err := s.svc.Get(context.Background(), caller, attachment.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), attachment.ID, got.ID)

	meta, rc, err := s.svc.Open(context.Background(), caller, attachment.ID)
	require.NoError(s.T(), err)
	defer rc.Close()
	assert.Equal(s.T(), attachment.ID, meta.ID)
}

func (s *DocumentServiceSuite) TestSaveRejectedLeavesNoMetadata() {
	caller := owner()
	_, err := s.svc.Save(context.Background(), caller.UserID, "script.sh", models.RelatedClaim, uuid.New(), bytes.NewReader([]byte("#!/bin/sh\n")))
	require.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))

	mine, err := s.svc.ListMine(context.Background(), caller)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), mine)
}

func (s *DocumentServiceSuite) TestGetStrangerForbidden() {
	caller := owner()
	attachment, err := s.svc.Save(context.Background(), caller.UserID, "photo.png", models.RelatedClaim, uuid.New(), bytes.NewReader(pngBytes(100)))
	require.NoError(s.T(), err)

	_, err = s.svc.Get(context.Background(), owner(), attachment.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	admin := requestcontext.Principal{UserID: uuid.New(), Role: string(identity.RoleAdmin)}
	_, err = s.svc.Get(context.Background(), admin, attachment.ID)
	assert.NoError(s.T(), err)
}

func (s *DocumentServiceSuite) TestDelete() {
	caller := owner()
	attachment, err := s.svc.Save(context.Background(), caller.UserID, "photo.png", models.RelatedClaim, uuid.New(), bytes.NewReader(pngBytes(100)))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.svc.Delete(context.Background(), caller, attachment.ID))
	_, err = s.svc.Get(context.Background(), caller, attachment.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DocumentServiceSuite) TestRelink() {
	caller := owner()
	provisional := uuid.New()
	attachment, err := s.svc.Save(context.Background(), caller.UserID, "photo.png", models.RelatedPolicy, provisional, bytes.NewReader(pngBytes(100)))
	require.NoError(s.T(), err)

	claimID := uuid.New()
	require.NoError(s.T(), s.svc.Relink(context.Background(), []uuid.UUID{attachment.ID}, models.RelatedClaim, claimID))

	got, err := s.svc.Get(context.Background(), caller, attachment.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RelatedClaim, got.RelatedTo)
	assert.Equal(s.T(), claimID, got.RelatedID)
}

func (s *DocumentServiceSuite) TestSweepRemovesOnlyStaleOrphans() {
	caller := owner()
	liveRef := uuid.New()
	deadRef := uuid.New()
	s.resolver.live[liveRef] = true

	linked, err := s.svc.Save(context.Background(), caller.UserID, "linked.png", models.RelatedClaim, liveRef, bytes.NewReader(pngBytes(100)))
	require.NoError(s.T(), err)
	orphan, err := s.svc.Save(context.Background(), caller.UserID, "orphan.png", models.RelatedClaim, deadRef, bytes.NewReader(pngBytes(100)))
	require.NoError(s.T(), err)

	// Within the grace period nothing is touched.
	removed, err := s.svc.SweepOrphans(context.Background(), time.Hour)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), removed)

	s.current = s.current.Add(2 * time.Hour)
	removed, err = s.svc.SweepOrphans(context.Background(), time.Hour)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, removed)

	_, err = s.svc.Get(context.Background(), caller, orphan.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.Get(context.Background(), caller, linked.ID)
	assert.NoError(s.T(), err)
}
