package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papershelf/internal/model"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
	"github.com/xxxsen/papershelf/internal/repo"
	"github.com/xxxsen/papershelf/internal/section"
)

const maxSectionWriteAttempts = 3

type PaperService struct {
	papers *repo.PaperRepo
	cache  *expirable.LRU[string, *model.Paper]

	// cacheMu orders cache fills against invalidations; writeGen counts
	// invalidations so a fill that raced a write is dropped.
	cacheMu  sync.Mutex
	writeGen uint64

	afterLoad func(id string)
}

// NewPaperService builds the service. A cacheSize or cacheTTL of zero disables
// the decoded-paper cache.
func NewPaperService(papers *repo.PaperRepo, cacheSize int, cacheTTL time.Duration) *PaperService {
	s := &PaperService{papers: papers}
	if cacheSize > 0 && cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, *model.Paper](cacheSize, nil, cacheTTL)
	}
	return s
}

type ListOptions struct {
	Tag    string
	Limit  int
	Offset int
}

type CreatePaperInput struct {
	Meta     *model.PaperMeta
	Sections []model.Section
}

func (s *PaperService) List(ctx context.Context, opts ListOptions) ([]model.PaperSummary, error) {
	rows, err := s.papers.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]model.PaperSummary, 0, len(rows))
	for i := range rows {
		summary, err := repo.DecodeSummary(&rows[i])
		if err != nil {
			return nil, err
		}
		if opts.Tag != "" && !summary.Meta.HasTag(opts.Tag) {
			continue
		}
		items = append(items, *summary)
	}
	return paginate(items, opts.Limit, opts.Offset), nil
}

func paginate(items []model.PaperSummary, limit, offset int) []model.PaperSummary {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []model.PaperSummary{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func (s *PaperService) Get(ctx context.Context, id string) (*model.Paper, error) {
	if s.cache == nil {
		return s.load(ctx, id)
	}
	if cached, ok := s.cache.Get(id); ok {
		return clonePaper(cached), nil
	}
	gen := s.currentWriteGen()
	paper, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheMu.Lock()
	if s.writeGen == gen {
		s.cache.Add(id, clonePaper(paper))
	}
	s.cacheMu.Unlock()
	return paper, nil
}

func (s *PaperService) load(ctx context.Context, id string) (*model.Paper, error) {
	row, err := s.papers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.afterLoad != nil {
		s.afterLoad(id)
	}
	return repo.DecodePaper(row)
}

func (s *PaperService) currentWriteGen() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.writeGen
}

// invalidate drops id from the cache, or everything when id is empty.
func (s *PaperService) invalidate(id string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.writeGen++
	if id == "" {
		s.cache.Purge()
		return
	}
	s.cache.Remove(id)
}

func (s *PaperService) Latest(ctx context.Context) (*model.Paper, error) {
	row, err := s.papers.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	return repo.DecodePaper(row)
}

func (s *PaperService) Create(ctx context.Context, input CreatePaperInput) (string, error) {
	paper, err := newPaper(input)
	if err != nil {
		return "", err
	}
	row, err := repo.EncodePaper(paper)
	if err != nil {
		return "", err
	}
	if err := s.papers.Create(ctx, row); err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Info("paper created",
		zap.String("paper_id", paper.ID),
		zap.String("title", paper.Meta.Title),
		zap.Int("sections", len(paper.Sections)),
	)
	return paper.ID, nil
}

// Seed replaces every stored paper with inputs. Nothing is written unless all
// inputs are valid.
func (s *PaperService) Seed(ctx context.Context, inputs []CreatePaperInput) ([]string, error) {
	rows := make([]*repo.PaperRow, 0, len(inputs))
	ids := make([]string, 0, len(inputs))
	for i, input := range inputs {
		paper, err := newPaper(input)
		if err != nil {
			return nil, fmt.Errorf("paper %d: %w", i, err)
		}
		row, err := repo.EncodePaper(paper)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		ids = append(ids, paper.ID)
	}
	if err := s.papers.ReplaceAll(ctx, rows); err != nil {
		return nil, err
	}
	s.invalidate("")
	logutil.GetLogger(ctx).Info("papers seeded", zap.Int("count", len(ids)))
	return ids, nil
}

// ReplaceSection swaps the content of one section. An empty paperID targets
// the latest paper.
func (s *PaperService) ReplaceSection(ctx context.Context, paperID, sectionID string, content []string) (*model.Section, error) {
	if content == nil {
		return nil, fmt.Errorf("%w: content must be an array", appErr.ErrInvalidInput)
	}
	var updated model.Section
	err := s.mutateSections(ctx, paperID, func(sections []model.Section) ([]model.Section, error) {
		next, err := section.ReplaceContent(sections, sectionID, content)
		if err != nil {
			return nil, err
		}
		idx, _ := section.Find(next, sectionID)
		updated = next[idx]
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSection removes a section. An empty paperID targets the latest paper.
func (s *PaperService) DeleteSection(ctx context.Context, paperID, sectionID string) error {
	return s.mutateSections(ctx, paperID, func(sections []model.Section) ([]model.Section, error) {
		return section.Remove(sections, sectionID)
	})
}

func (s *PaperService) mutateSections(ctx context.Context, paperID string, mutate func([]model.Section) ([]model.Section, error)) error {
	for attempt := 1; attempt <= maxSectionWriteAttempts; attempt++ {
		row, err := s.loadTarget(ctx, paperID)
		if err != nil {
			return err
		}
		sections, err := repo.DecodeSections(row.ID, row.Sections)
		if err != nil {
			return err
		}
		next, err := mutate(sections)
		if err != nil {
			return err
		}
		encoded, err := repo.EncodeSections(next)
		if err != nil {
			return err
		}
		err = s.papers.SwapSections(ctx, row.ID, row.Sections, encoded)
		if appErr.IsConflict(err) {
			logutil.GetLogger(ctx).Warn("concurrent section write, retrying",
				zap.String("paper_id", row.ID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return err
		}
		s.invalidate(row.ID)
		logutil.GetLogger(ctx).Info("paper sections updated",
			zap.String("paper_id", row.ID),
			zap.Int("sections", len(next)),
		)
		return nil
	}
	return fmt.Errorf("update sections: %w", appErr.ErrConflict)
}

func (s *PaperService) loadTarget(ctx context.Context, paperID string) (*repo.PaperRow, error) {
	if paperID == "" {
		return s.papers.GetLatest(ctx)
	}
	return s.papers.GetByID(ctx, paperID)
}

// Count reports how many papers are stored; the health check uses it to reach storage.
func (s *PaperService) Count(ctx context.Context) (int, error) {
	return s.papers.Count(ctx)
}

func newPaper(input CreatePaperInput) (*model.Paper, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	return &model.Paper{
		ID:       uuid.NewString(),
		Meta:     *input.Meta,
		Sections: input.Sections,
	}, nil
}

func validateCreate(input CreatePaperInput) error {
	if input.Meta == nil {
		return fmt.Errorf("%w: meta is required", appErr.ErrInvalidInput)
	}
	if input.Sections == nil {
		return fmt.Errorf("%w: sections is required", appErr.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(input.Sections))
	for i, s := range input.Sections {
		if s.ID == "" {
			return fmt.Errorf("%w: section %d has no id", appErr.ErrInvalidInput, i)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: duplicate section id %q", appErr.ErrInvalidInput, s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Type.Valid() {
			return fmt.Errorf("%w: section %q has unknown type %q", appErr.ErrInvalidInput, s.ID, s.Type)
		}
	}
	return nil
}

func clonePaper(p *model.Paper) *model.Paper {
	out := *p
	out.Meta.Authors = cloneStrings(p.Meta.Authors)
	out.Meta.Tags = cloneStrings(p.Meta.Tags)
	out.Sections = make([]model.Section, len(p.Sections))
	for i, s := range p.Sections {
		s.Content = cloneStrings(s.Content)
		out.Sections[i] = s
	}
	return &out
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
