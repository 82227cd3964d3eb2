package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/id"
)

// ListSections returns every section in display order, hidden ones included.
func (s *Store) ListSections(ctx context.Context) ([]domain.Section, error) {
	ids, err := s.client.LRange(ctx, KeySectionOrder, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get section IDs: %w", err)
	}

	keys := make([]string, len(ids))
	for i, sid := range ids {
		keys[i] = SectionKey(sid)
	}
	return getJSON[domain.Section](ctx, s.client, keys)
}

// GetSection retrieves a section by ID.
func (s *Store) GetSection(ctx context.Context, sectionID string) (*domain.Section, error) {
	data, err := s.client.Get(ctx, SectionKey(sectionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, sectionID)
		}
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	var section domain.Section
	if err := json.Unmarshal(data, &section); err != nil {
		return nil, fmt.Errorf("failed to unmarshal section: %w", err)
	}
	return &section, nil
}

// CreateSection satisfies the import pipeline: a visible section tagged as
// imported, or the existing section with the same folded title.
func (s *Store) CreateSection(ctx context.Context, title string) (domain.Section, bool, error) {
	return s.EnsureSection(ctx, title, true, domain.SourceImport)
}

// ensureSectionScript creates a section in one step: the order entry, the
// body and the title claim land together or not at all. RPUSH runs first so
// a wrong-typed order key aborts the script before anything is written.
//
// KEYS: titles hash, order list, section key. ARGV: folded title, id, body.
// Returns {id, 1} when created, {winner id, 0} when the title is taken.
var ensureSectionScript = redis.NewScript(`
local existing = redis.call('HGET', KEYS[1], ARGV[1])
if existing then
	return {existing, 0}
end
redis.call('RPUSH', KEYS[2], ARGV[2])
redis.call('SET', KEYS[3], ARGV[3])
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return {ARGV[2], 1}
`)

// EnsureSection returns the section titled title, creating it when no
// section folds to the same title. created reports whether this call won.
func (s *Store) EnsureSection(ctx context.Context, title string, visible bool, source string) (domain.Section, bool, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return domain.Section{}, false, errors.New("section title is empty")
	}
	folded := domain.FoldTitle(title)

	if existing, err := s.sectionByTitle(ctx, folded); err != nil {
		return domain.Section{}, false, err
	} else if existing != nil {
		return *existing, false, nil
	}

	sid, err := id.Section()
	if err != nil {
		return domain.Section{}, false, err
	}
	now := time.Now().UTC()
	section := domain.Section{
		ID:        sid,
		Title:     title,
		Visible:   visible,
		Sources:   []string{source},
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(section)
	if err != nil {
		return domain.Section{}, false, fmt.Errorf("failed to marshal section: %w", err)
	}

	res, err := ensureSectionScript.Run(ctx, s.client,
		[]string{KeySectionTitles, KeySectionOrder, SectionKey(sid)},
		folded, sid, data,
	).Slice()
	if err != nil {
		return domain.Section{}, false, fmt.Errorf("failed to create section: %w", err)
	}
	winnerID, created, err := parseEnsureReply(res)
	if err != nil {
		return domain.Section{}, false, err
	}
	if created {
		return section, true, nil
	}

	// Another writer claimed the title between the lookup and the script
	winner, err := s.GetSection(ctx, winnerID)
	if err != nil {
		return domain.Section{}, false, err
	}
	return *winner, false, nil
}

func parseEnsureReply(res []interface{}) (string, bool, error) {
	if len(res) != 2 {
		return "", false, fmt.Errorf("unexpected section script reply: %v", res)
	}
	sid, ok := res[0].(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected section id in reply: %v", res[0])
	}
	flag, ok := res[1].(int64)
	if !ok {
		return "", false, fmt.Errorf("unexpected created flag in reply: %v", res[1])
	}
	return sid, flag == 1, nil
}

// UpdateSection applies the visibility of an administrator-managed section
// and records source in its provenance. Title changes are not supported.
func (s *Store) UpdateSection(ctx context.Context, sectionID string, visible bool, source string) (*domain.Section, error) {
	section, err := s.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	changed := false
	if section.Visible != visible {
		section.Visible = visible
		changed = true
	}
	if source != "" && !slices.Contains(section.Sources, source) {
		section.Sources = append(section.Sources, source)
		changed = true
	}
	if !changed {
		return section, nil
	}

	section.UpdatedAt = time.Now().UTC()
	if err := s.putSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *Store) sectionByTitle(ctx context.Context, folded string) (*domain.Section, error) {
	sid, err := s.client.HGet(ctx, KeySectionTitles, folded).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up section title: %w", err)
	}
	return s.GetSection(ctx, sid)
}

func (s *Store) putSection(ctx context.Context, section *domain.Section) error {
	data, err := json.Marshal(section)
	if err != nil {
		return fmt.Errorf("failed to marshal section: %w", err)
	}
	if err := s.client.Set(ctx, SectionKey(section.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save section: %w", err)
	}
	return nil
}
