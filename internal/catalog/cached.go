package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/cache"
	"github.com/lankai7/Music/internal/track"
)

type Resolver interface {
	Resolve(ctx context.Context, id string) (*track.Resolved, error)
}

// CachingResolver remembers lyrics and metadata of every resolved track and
// fills them back in when the catalog later answers without lyrics.
type CachingResolver struct {
	upstream Resolver
	store    cache.Store
	logger   zerolog.Logger
}

func NewCachingResolver(upstream Resolver, store cache.Store) *CachingResolver {
	return &CachingResolver{
		upstream: upstream,
		store:    store,
		logger:   log.With().Str("component", "lyric-cache").Logger(),
	}
}

func (r *CachingResolver) Resolve(ctx context.Context, id string) (*track.Resolved, error) {
	res, err := r.upstream.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		return res, nil
	}

	cached, cacheErr := r.store.Get(id)
	if cacheErr != nil && !isMiss(cacheErr) {
		r.logger.Warn().Err(cacheErr).Str("id", id).Msg("cache read failed")
	}

	if strings.TrimSpace(res.LyricText) == "" && cached != nil && cached.LyricText != "" {
		r.logger.Debug().Str("id", id).Msg("using cached lyrics")
		res.LyricText = cached.LyricText
	}

	entry := &cache.Entry{
		Title:     res.Title,
		Artist:    res.Artist,
		Album:     res.Album,
		CoverURL:  res.CoverURL,
		LyricText: res.LyricText,
	}
	if cached != nil {
		entry.SyncOffsetMs = cached.SyncOffsetMs
		entry.CreatedAt = cached.CreatedAt
	}
	if err := r.store.Set(id, entry); err != nil {
		r.logger.Warn().Err(err).Str("id", id).Msg("cache write failed")
	}

	return res, nil
}

// SyncOffset returns the stored lyric offset for id, 0 when unknown.
func (r *CachingResolver) SyncOffset(id string) int64 {
	if r.store == nil {
		return 0
	}
	entry, err := r.store.Get(id)
	if err != nil {
		return 0
	}
	return entry.SyncOffsetMs
}

func (r *CachingResolver) SetSyncOffset(id string, offsetMs int64) error {
	if r.store == nil {
		return nil
	}
	return cache.SetSyncOffset(r.store, id, offsetMs)
}

func isMiss(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss) || errors.Is(err, cache.ErrCacheExpired) || errors.Is(err, cache.ErrCacheCorrupt)
}
