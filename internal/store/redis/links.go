package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

// dedupIndexes returns the index that decides duplicates for scope first,
// then the one that is only kept up to date.
func dedupIndexes(scope domain.DedupScope, sectionID string) (claim, shadow string) {
	if scope == domain.DedupScopeCatalog {
		return KeyCatalogURLs, SectionURLsKey(sectionID)
	}
	return SectionURLsKey(sectionID), KeyCatalogURLs
}

// HasLink reports whether url is already stored within scope.
func (s *Store) HasLink(ctx context.Context, scope domain.DedupScope, sectionID, url string) (bool, error) {
	key, err := domain.DedupKey(url)
	if err != nil {
		return false, err
	}
	claim, _ := dedupIndexes(scope, sectionID)

	ok, err := s.client.HExists(ctx, claim, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return ok, nil
}

// AddLink stores link in its section. The URL is claimed first so two
// concurrent writers of the same URL cannot both succeed; the loser gets
// domain.ErrDuplicateLink. A claim whose write did not land is released.
func (s *Store) AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error {
	n, err := s.client.Exists(ctx, SectionKey(link.SectionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check section: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSectionNotFound, link.SectionID)
	}

	key, err := domain.DedupKey(link.URL)
	if err != nil {
		return err
	}
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	claim, shadow := dedupIndexes(scope, link.SectionID)
	won, err := s.client.HSetNX(ctx, claim, key, link.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim link url: %w", err)
	}
	if !won {
		return domain.ErrDuplicateLink
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, LinkKey(link.ID), data, 0)
	pipe.RPush(ctx, SectionLinksKey(link.SectionID), link.ID)
	pipe.HSetNX(ctx, shadow, key, link.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.settleFailedWrite(ctx, claim, key, link.ID, err)
	}

	return nil
}

// settleFailedWrite decides what happens to a claim after the link write
// reported an error. A server error reply means the transaction ran but a
// command failed, so the partial body is removed and the claim released.
// Otherwise the reply may have been lost after the transaction applied, so
// the claim is only released once the link is known to be missing. When
// that cannot be checked the claim stays and the URL reads as a duplicate
// until an operator removes it.
func (s *Store) settleFailedWrite(ctx context.Context, claim, key, linkID string, writeErr error) error {
	var reply redis.Error
	if errors.As(writeErr, &reply) {
		_ = s.client.Del(ctx, LinkKey(linkID)).Err()
		_ = s.client.HDel(ctx, claim, key).Err()
		return fmt.Errorf("failed to save link: %w", writeErr)
	}

	n, err := s.client.Exists(ctx, LinkKey(linkID)).Result()
	if err != nil {
		return fmt.Errorf("failed to save link: %w", writeErr)
	}
	if n == 1 {
		return nil
	}
	_ = s.client.HDel(ctx, claim, key).Err()
	return fmt.Errorf("failed to save link: %w", writeErr)
}

// ListLinksBySection returns the links of a section in insertion order.
func (s *Store) ListLinksBySection(ctx context.Context, sectionID string) ([]domain.Link, error) {
	ids, err := s.client.LRange(ctx, SectionLinksKey(sectionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link IDs: %w", err)
	}

	keys := make([]string, len(ids))
	for i, lid := range ids {
		keys[i] = LinkKey(lid)
	}
	return getJSON[domain.Link](ctx, s.client, keys)
}

// Snapshot reads the whole catalog: sections in display order and their
// links keyed by section ID.
func (s *Store) Snapshot(ctx context.Context) ([]domain.Section, map[string][]domain.Link, error) {
	sections, err := s.ListSections(ctx)
	if err != nil {
		return nil, nil, err
	}

	links := make(map[string][]domain.Link, len(sections))
	for _, sec := range sections {
		ls, err := s.ListLinksBySection(ctx, sec.ID)
		if err != nil {
			return nil, nil, err
		}
		links[sec.ID] = ls
	}
	return sections, links, nil
}
