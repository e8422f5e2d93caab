package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/lankai7/Music/internal/cache"
	"github.com/lankai7/Music/internal/catalog"
	"github.com/lankai7/Music/internal/config"
	"github.com/lankai7/Music/internal/coordinator"
	"github.com/lankai7/Music/internal/player"
	"github.com/lankai7/Music/internal/playlist"
	"github.com/lankai7/Music/internal/transport"
)

// engine is everything a playing session needs, wired from the config.
type engine struct {
	mpv      *transport.MPV
	coord    *coordinator.Coordinator
	poller   *player.Poller
	catalog  *catalog.Client
	resolver *catalog.CachingResolver
	store    cache.Store
	closers  []io.Closer
}

// openStore returns the lyric cache: redis when an address is configured,
// otherwise the disk cache. a disabled cache is memory only.
func openStore(c *config.Config) (cache.Store, io.Closer, error) {
	if c.Cache.Disabled {
		store, err := cache.NewDiskCache("", c.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	if c.Cache.RedisAddr != "" {
		store, err := cache.NewRedisCache(c.Cache.RedisAddr, c.Cache.RedisPassword, c.Cache.RedisDB, c.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	store, err := cache.NewDiskCache(c.Cache.Dir, c.Cache.TTL)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

func newCatalog(c *config.Config) (*catalog.Client, error) {
	return catalog.New(catalog.Options{
		BaseURL:       c.Catalog.BaseURL,
		UserAgent:     c.Catalog.UserAgent,
		Timeout:       c.Catalog.Timeout,
		RatePerSecond: c.Catalog.RatePerSecond,
		Burst:         c.Catalog.Burst,
	})
}

// startEngine launches mpv and builds the coordinator around it.
func startEngine(c *config.Config) (*engine, error) {
	client, err := newCatalog(c)
	if err != nil {
		return nil, err
	}

	store, storeCloser, err := openStore(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open lyric cache: %w", err)
	}

	mode, err := playlist.ParseMode(c.Player.Mode)
	if err != nil {
		return nil, err
	}

	mpv := transport.NewMPV(transport.MPVOptions{
		Executable: c.Player.MPVPath,
		SocketPath: c.Player.Socket,
		Volume:     c.Player.Volume,
	})
	if err := mpv.Start(); err != nil {
		if storeCloser != nil {
			storeCloser.Close()
		}
		return nil, err
	}

	e := &engine{
		mpv:      mpv,
		catalog:  client,
		resolver: catalog.NewCachingResolver(client, store),
		store:    store,
		closers:  []io.Closer{mpv},
	}
	if storeCloser != nil {
		e.closers = append(e.closers, storeCloser)
	}

	e.coord, err = coordinator.New(mpv, playlist.NewCursor(mode, nil), c.Player.Volume)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.poller, err = player.NewPoller(mpv, c.Player.PositionTolerance.Milliseconds())
	if err != nil {
		e.Close()
		return nil, err
	}
	// every fresh stream, including a loop reload, starts from a clean poll
	e.coord.OnLoad(e.poller.Reset)
	return e, nil
}

func (e *engine) Close() error {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}
	e.closers = nil
	return nil
}
