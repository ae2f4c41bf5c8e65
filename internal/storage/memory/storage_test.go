package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/callclock/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) TestSaveAndGetCaptionSet() {
	set := &model.CaptionSet{
		Page:      model.PageClock,
		Captions:  []string{"reading emails", "sending DMs"},
		UpdatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	err := s.storage.SaveCaptionSet(s.ctx, set)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetCaptionSet(s.ctx, model.PageClock)
	s.Require().NoError(err)
	s.Equal(set, retrieved)
}

func (s *StorageSuite) TestGetCaptionSetNotFound() {
	_, err := s.storage.GetCaptionSet(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrCaptionsNotFound)
}

func (s *StorageSuite) TestCaptionSetIsCopied() {
	captions := []string{"reading emails"}
	_ = s.storage.SaveCaptionSet(s.ctx, &model.CaptionSet{Page: model.PageClock, Captions: captions})

	captions[0] = "mutated"
	retrieved, err := s.storage.GetCaptionSet(s.ctx, model.PageClock)
	s.Require().NoError(err)
	s.Equal("reading emails", retrieved.Captions[0])

	retrieved.Captions[0] = "mutated again"
	again, err := s.storage.GetCaptionSet(s.ctx, model.PageClock)
	s.Require().NoError(err)
	s.Equal("reading emails", again.Captions[0])
}

func (s *StorageSuite) TestDeleteCaptionSet() {
	_ = s.storage.SaveCaptionSet(s.ctx, &model.CaptionSet{Page: model.PageClock, Captions: []string{"a"}})

	err := s.storage.DeleteCaptionSet(s.ctx, model.PageClock)
	s.Require().NoError(err)

	_, err = s.storage.GetCaptionSet(s.ctx, model.PageClock)
	s.ErrorIs(err, model.ErrCaptionsNotFound)
}

func (s *StorageSuite) TestListPages() {
	pages, err := s.storage.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Empty(pages)

	_ = s.storage.SaveCaptionSet(s.ctx, &model.CaptionSet{Page: "guide", Captions: []string{"a"}})
	_ = s.storage.SaveCaptionSet(s.ctx, &model.CaptionSet{Page: model.PageClock, Captions: []string{"b"}})

	pages, err = s.storage.ListPages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Page{model.PageClock, "guide"}, pages)
}
