package caption

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/storage"
)

// FallbackCaption is shown when a page has no usable captions
const FallbackCaption = "scrolling Linkedin"

// DefaultCaptions is the caption list of the clock page
var DefaultCaptions = []string{
	"scrolling Linkedin",
	"reading emails",
	"sending DMs",
	"updating CRM",
	"checking news",
}

// Clean trims captions and drops blank entries
func Clean(captions []string) []string {
	out := make([]string, 0, len(captions))
	for _, c := range captions {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate returns ErrEmptyCaptions if no usable caption remains after cleaning
func Validate(captions []string) error {
	if len(Clean(captions)) == 0 {
		return model.ErrEmptyCaptions
	}
	return nil
}

// Service manages the caption list of each page
type Service struct {
	storage storage.Storage
	fs      afero.Fs
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new caption Service
func New(storage storage.Storage, fs afero.Fs, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		fs:      fs,
		clock:   clk,
		logger:  logger.With(slog.String("component", "caption")),
	}
}

// Save replaces the captions of a page
func (s *Service) Save(ctx context.Context, page model.Page, captions []string) (*model.CaptionSet, error) {
	cleaned := Clean(captions)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("page %q: %w", page, model.ErrEmptyCaptions)
	}

	set := &model.CaptionSet{
		Page:      page,
		Captions:  cleaned,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.storage.SaveCaptionSet(ctx, set); err != nil {
		return nil, err
	}

	s.logger.Info("captions saved",
		slog.String("page", string(page)),
		slog.Int("count", len(cleaned)),
	)
	return set, nil
}

// LoadFromFile loads a page's captions from a file (one caption per line, '#' starts a comment)
func (s *Service) LoadFromFile(ctx context.Context, page model.Page, path string) (*model.CaptionSet, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var captions []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		captions = append(captions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	set, err := s.Save(ctx, page, captions)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return set, nil
}

// Seed stores the given captions for a page unless it already has some
func (s *Service) Seed(ctx context.Context, page model.Page, captions []string) error {
	_, err := s.storage.GetCaptionSet(ctx, page)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrCaptionsNotFound) {
		return err
	}
	_, err = s.Save(ctx, page, captions)
	return err
}

// Get returns the caption set of a page
func (s *Service) Get(ctx context.Context, page model.Page) (*model.CaptionSet, error) {
	return s.storage.GetCaptionSet(ctx, page)
}

// Exists reports whether captions are stored for a page
func (s *Service) Exists(ctx context.Context, page model.Page) (bool, error) {
	_, err := s.storage.GetCaptionSet(ctx, page)
	if errors.Is(err, model.ErrCaptionsNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Captions returns the captions to rotate on a page.
// Lookup failures degrade to the single fallback caption.
func (s *Service) Captions(ctx context.Context, page model.Page) []string {
	set, err := s.storage.GetCaptionSet(ctx, page)
	if err != nil {
		s.logger.Warn("captions unavailable, using fallback",
			slog.String("page", string(page)),
			slog.String("error", err.Error()),
		)
		return []string{FallbackCaption}
	}
	if cleaned := Clean(set.Captions); len(cleaned) > 0 {
		return cleaned
	}
	return []string{FallbackCaption}
}

// Delete removes a page's captions
func (s *Service) Delete(ctx context.Context, page model.Page) error {
	return s.storage.DeleteCaptionSet(ctx, page)
}

// Pages returns every page with captions configured
func (s *Service) Pages(ctx context.Context) ([]model.Page, error) {
	return s.storage.ListPages(ctx)
}
