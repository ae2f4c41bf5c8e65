package caption

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/callclock/internal/dependencies/mocks"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/storage/memory"
	"github.com/mcoot/callclock/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	fs      afero.Fs
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.fs = afero.NewMemMapFs()
	s.clock = mocks.NewMockClock(noon)
	s.service = New(memory.New(), s.fs, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestSaveCleansCaptions() {
	set, err := s.service.Save(s.ctx, model.PageClock, []string{"  reading emails ", "", "sending DMs"})
	s.Require().NoError(err)
	s.Equal([]string{"reading emails", "sending DMs"}, set.Captions)
	s.Equal(noon, set.UpdatedAt)

	got, err := s.service.Get(s.ctx, model.PageClock)
	s.Require().NoError(err)
	s.Equal(set.Captions, got.Captions)
}

func (s *ServiceSuite) TestSaveRejectsEmptyList() {
	_, err := s.service.Save(s.ctx, model.PageClock, []string{" ", ""})
	s.ErrorIs(err, model.ErrEmptyCaptions)

	_, err = s.service.Get(s.ctx, model.PageClock)
	s.ErrorIs(err, model.ErrCaptionsNotFound)
}

func (s *ServiceSuite) TestLoadFromFile() {
	content := "# clock page\nscrolling Linkedin\n\nreading emails\n  # indented comment\nsending DMs\n"
	s.Require().NoError(afero.WriteFile(s.fs, "/captions/clock.txt", []byte(content), 0o644))

	set, err := s.service.LoadFromFile(s.ctx, model.PageClock, "/captions/clock.txt")
	s.Require().NoError(err)
	s.Equal([]string{"scrolling Linkedin", "reading emails", "sending DMs"}, set.Captions)
}

func (s *ServiceSuite) TestLoadFromFileMissing() {
	_, err := s.service.LoadFromFile(s.ctx, model.PageClock, "/nope.txt")
	s.Error(err)
}

func (s *ServiceSuite) TestLoadFromFileOnlyComments() {
	s.Require().NoError(afero.WriteFile(s.fs, "/empty.txt", []byte("# nothing here\n\n"), 0o644))

	_, err := s.service.LoadFromFile(s.ctx, model.PageClock, "/empty.txt")
	s.ErrorIs(err, model.ErrEmptyCaptions)
}

func (s *ServiceSuite) TestSeedDoesNotOverwrite() {
	s.Require().NoError(s.service.Seed(s.ctx, model.PageClock, DefaultCaptions))
	s.Require().NoError(s.service.Seed(s.ctx, model.PageClock, []string{"other"}))

	s.Equal(DefaultCaptions, s.service.Captions(s.ctx, model.PageClock))
}

func (s *ServiceSuite) TestCaptionsFallsBackWhenMissing() {
	s.Equal([]string{FallbackCaption}, s.service.Captions(s.ctx, "unknown"))
}

func (s *ServiceSuite) TestExists() {
	ok, err := s.service.Exists(s.ctx, "lobby")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.service.Save(s.ctx, "lobby", []string{"dialing out"})
	s.Require().NoError(err)
	ok, err = s.service.Exists(s.ctx, "lobby")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestDeleteAndPages() {
	_, err := s.service.Save(s.ctx, model.PageClock, DefaultCaptions)
	s.Require().NoError(err)
	_, err = s.service.Save(s.ctx, "guide", []string{"a"})
	s.Require().NoError(err)

	pages, err := s.service.Pages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Page{model.PageClock, "guide"}, pages)

	s.Require().NoError(s.service.Delete(s.ctx, "guide"))
	pages, err = s.service.Pages(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Page{model.PageClock}, pages)
}

func (s *ServiceSuite) TestValidate() {
	s.NoError(Validate([]string{"a"}))
	s.ErrorIs(Validate(nil), model.ErrEmptyCaptions)
	s.ErrorIs(Validate([]string{"\t"}), model.ErrEmptyCaptions)
}
