// Package storagetest holds the behavior every run store must share.
package storagetest

import (
	"context"
	"time"

	"github.com/aescanero/chloe/pkg/adapters/storage"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/stretchr/testify/suite"
)

// RunStoreSuite exercises a ports.RunStore. NewStore is called before each test.
type RunStoreSuite struct {
	suite.Suite
	NewStore func() ports.RunStore

	store ports.RunStore
	ctx   context.Context
}

func (s *RunStoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

func record(id string, submitted time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		ID:     id,
		Status: domain.RunStatusSubmitted,
		Request: domain.RunRequest{
			LinkedInURL:      "https://www.linkedin.com/in/" + id,
			PostsLimit:       10,
			ReactionsLimit:   10,
			InsightsLanguage: "French",
			Mode:             domain.ModeBalanced,
		},
		SubmittedAt: submitted.UTC(),
	}
}

func (s *RunStoreSuite) TestSaveAndGet() {
	rec := record("run-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Status, got.Status)
	s.Equal(rec.Request.LinkedInURL, got.Request.LinkedInURL)
	s.True(rec.SubmittedAt.Equal(got.SubmittedAt))
}

func (s *RunStoreSuite) TestSaveReplacesCheckpoint() {
	rec := record("run-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, rec))

	rec.Status = domain.RunStatusRunning
	rec.Phase = "fetch_profile,fetch_posts,fetch_reactions"
	rec.Result = &domain.RunResult{
		OutreachLanguage: "Spanish",
		Warnings:         []string{"No posts found"},
	}
	s.Require().NoError(s.store.Save(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(domain.RunStatusRunning, got.Status)
	s.Equal(rec.Phase, got.Phase)
	s.Require().NotNil(got.Result)
	s.Equal("Spanish", got.Result.OutreachLanguage)
	s.Equal([]string{"No posts found"}, got.Result.Warnings)
}

func (s *RunStoreSuite) TestGetReturnsCopy() {
	rec := record("run-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, rec))

	got, err := s.store.Get(s.ctx, "run-1")
	s.Require().NoError(err)
	got.Status = domain.RunStatusFailed

	again, err := s.store.Get(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(domain.RunStatusSubmitted, again.Status)
}

func (s *RunStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *RunStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Save(s.ctx, record("run-1", time.Now())))
	s.Require().NoError(s.store.Delete(s.ctx, "run-1"))

	_, err := s.store.Get(s.ctx, "run-1")
	s.ErrorIs(err, storage.ErrNotFound)

	// Deleting twice is fine
	s.NoError(s.store.Delete(s.ctx, "run-1"))
}

func (s *RunStoreSuite) TestList() {
	base := time.Now()
	s.Require().NoError(s.store.Save(s.ctx, record("run-1", base)))
	s.Require().NoError(s.store.Save(s.ctx, record("run-2", base.Add(time.Second))))
	s.Require().NoError(s.store.Save(s.ctx, record("run-3", base.Add(2*time.Second))))

	ids, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"run-1", "run-2", "run-3"}, ids)
}
