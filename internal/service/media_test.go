package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mls_syncer/internal/domain"
	"mls_syncer/internal/service/mocks"
)

type MediaPipelineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	blobs  *mocks.MockBlobStore
	assets *mocks.MockMediaStore

	pipeline *MediaPipeline
}

func (s *MediaPipelineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.blobs = mocks.NewMockBlobStore(s.ctrl)
	s.assets = mocks.NewMockMediaStore(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.pipeline = NewMediaPipeline(s.blobs, s.assets, logger)
}

func (s *MediaPipelineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestMediaPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(MediaPipelineTestSuite))
}

func (s *MediaPipelineTestSuite) noExisting(ctx context.Context, listingID int64) {
	s.assets.EXPECT().ExistingURLs(ctx, listingID).Return(map[string]struct{}{}, nil)
}

func (s *MediaPipelineTestSuite) TestIngest_FirstSuccessBecomesPrimary() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/1.jpg", Order: 1},
		{MediaURL: "https://cdn.example.com/2.jpg", Order: 2},
		{MediaURL: "https://cdn.example.com/3.jpg", Order: 3},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(false, nil)

	// The first item fails to download; the second succeeds and takes the
	// cover slot, the third succeeds but does not.
	s.blobs.EXPECT().Fetch(ctx, items[0].MediaURL).Return("", &domain.MediaError{URL: items[0].MediaURL})

	s.blobs.EXPECT().Fetch(ctx, items[1].MediaURL).Return("/tmp/dl-2", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-2", gomock.Any()).Return("/media/2.jpg", nil)
	s.assets.EXPECT().Attach(ctx, gomock.Any()).Return(int64(20), nil)
	s.assets.EXPECT().SetPrimary(ctx, int64(7), int64(20)).Return(nil)

	s.blobs.EXPECT().Fetch(ctx, items[2].MediaURL).Return("/tmp/dl-3", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-3", gomock.Any()).Return("/media/3.jpg", nil)
	s.assets.EXPECT().Attach(ctx, gomock.Any()).Return(int64(30), nil)

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(2, attached)
	s.Equal(1, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_ExistingPrimaryIsKept() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/1.jpg", Order: 1},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(true, nil)

	s.blobs.EXPECT().Fetch(ctx, items[0].MediaURL).Return("/tmp/dl-1", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-1", gomock.Any()).Return("/media/1.jpg", nil)
	s.assets.EXPECT().Attach(ctx, gomock.Any()).Return(int64(10), nil)
	// No SetPrimary call expected.

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(1, attached)
	s.Equal(0, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_SkipsAlreadyAttachedURLs() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/dup.jpg", Order: 1},
		{MediaURL: "https://cdn.example.com/new.jpg", Order: 2},
	}

	s.assets.EXPECT().ExistingURLs(ctx, int64(7)).Return(map[string]struct{}{
		"https://cdn.example.com/dup.jpg": {},
	}, nil)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(true, nil)

	s.blobs.EXPECT().Fetch(ctx, items[1].MediaURL).Return("/tmp/dl-n", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-n", gomock.Any()).Return("/media/new.jpg", nil)
	s.assets.EXPECT().Attach(ctx, gomock.Any()).Return(int64(11), nil)

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(1, attached)
	s.Equal(0, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_ProcessesInDisplayOrder() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/second.jpg", Order: 5},
		{MediaURL: "https://cdn.example.com/first.jpg", Order: 1},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(true, nil)

	first := s.blobs.EXPECT().Fetch(ctx, "https://cdn.example.com/first.jpg").Return("", errors.New("nope"))
	s.blobs.EXPECT().Fetch(ctx, "https://cdn.example.com/second.jpg").Return("", errors.New("nope")).After(first)

	_, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(2, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_PersistFailureRemovesTemp() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/1.jpg", Order: 1},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(true, nil)

	s.blobs.EXPECT().Fetch(ctx, items[0].MediaURL).Return("/tmp/dl-1", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-1", gomock.Any()).Return("", errors.New("disk full"))
	s.blobs.EXPECT().Remove("/tmp/dl-1")

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(0, attached)
	s.Equal(1, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_AttachFailureRemovesStoredFile() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "https://cdn.example.com/1.jpg", Order: 1},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(true, nil)

	s.blobs.EXPECT().Fetch(ctx, items[0].MediaURL).Return("/tmp/dl-1", nil)
	s.blobs.EXPECT().Persist("/tmp/dl-1", gomock.Any()).Return("/media/1.jpg", nil)
	s.assets.EXPECT().Attach(ctx, gomock.Any()).Return(int64(0), errors.New("fk violation"))
	s.blobs.EXPECT().Remove("/media/1.jpg")

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(0, attached)
	s.Equal(1, warnings)
}

func (s *MediaPipelineTestSuite) TestIngest_EmptyURLIsWarning() {
	ctx := context.Background()

	items := []domain.RemoteMedia{
		{MediaURL: "", Order: 1},
	}

	s.noExisting(ctx, 7)
	s.assets.EXPECT().HasPrimary(ctx, int64(7)).Return(false, nil)

	attached, warnings, err := s.pipeline.Ingest(ctx, 7, items)

	s.NoError(err)
	s.Equal(0, attached)
	s.Equal(1, warnings)
}
