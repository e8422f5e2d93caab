package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lankai7/Music/internal/track"
)

const (
	searchPath  = "search.php"
	hotPath     = "gethot.php"
	latestPath  = "getnew.php"
	resolvePath = "geturl2.php"

	codeOK = 200
)

var ErrNotFound = errors.New("track not found in catalog")

type Options struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to the remote song catalog.
type Client struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("catalog base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url %q: %w", opts.BaseURL, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
				TLSHandshakeTimeout: 3 * time.Second,
			},
			Timeout: opts.Timeout,
		}
	}

	return &Client{
		baseURL:   base,
		userAgent: opts.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:    log.With().Str("component", "catalog").Logger(),
	}, nil
}

// Search looks tracks up by keyword. an empty keyword returns the hot list.
func (c *Client) Search(ctx context.Context, keyword string) ([]track.Ref, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return c.Hot(ctx)
	}
	return c.list(ctx, searchPath, url.Values{"keyword": {keyword}})
}

func (c *Client) Hot(ctx context.Context) ([]track.Ref, error) {
	return c.list(ctx, hotPath, url.Values{"t": {"1"}})
}

// Latest returns newly published tracks.
func (c *Client) Latest(ctx context.Context) ([]track.Ref, error) {
	return c.list(ctx, latestPath, url.Values{"t": {"1"}})
}

// Resolve exchanges a track id for a playable stream url, metadata and lyrics.
func (c *Client) Resolve(ctx context.Context, id string) (*track.Resolved, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("empty track id")
	}

	var env envelope[resolveData]
	if err := c.get(ctx, resolvePath, url.Values{"id": {id}}, &env); err != nil {
		return nil, err
	}
	if env.Code != codeOK {
		return nil, fmt.Errorf("%w: id %s (code %d)", ErrNotFound, id, env.Code)
	}

	d := env.Data
	resolved := &track.Resolved{
		ID:          d.RID.String(),
		PlayableURL: strings.TrimSpace(d.URL.String()),
		Title:       d.Name.String(),
		Artist:      d.Artist.String(),
		Album:       d.Album.String(),
		Quality:     d.Quality.String(),
		Duration:    d.Duration.String(),
		Size:        d.Size.String(),
		CoverURL:    d.Pic.String(),
		LyricText:   d.Lrc.String(),
	}
	if resolved.ID == "" {
		resolved.ID = id
	}
	return resolved, nil
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]track.Ref, error) {
	var env envelope[listData]
	if err := c.get(ctx, path, query, &env); err != nil {
		return nil, err
	}
	if env.Code != codeOK {
		c.logger.Warn().Str("path", path).Int("code", env.Code).Msg("catalog returned no list")
		return []track.Ref{}, nil
	}

	refs := make([]track.Ref, 0, len(env.Data.List))
	for _, item := range env.Data.List {
		ref := track.Ref{
			ID:         item.ID.String(),
			Title:      item.Title.String(),
			Singer:     item.Singer.String(),
			CoverURL:   item.PicURL.String(),
			Popularity: item.Hit.Int(),
		}
		if !ref.IsValid() {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	requestID := uuid.New().String()
	logger := c.logger.With().Str("request_id", requestID).Str("path", path).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-Id", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog request failed")
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn().Int("status", resp.StatusCode).Msg("catalog returned error status")
		return fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}

	logger.Debug().Dur("took", time.Since(started)).Msg("catalog request done")
	return nil
}

type envelope[T any] struct {
	Code int `json:"code"`
	Data T   `json:"data"`
}

type listData struct {
	List []listItem `json:"list"`
}

type listItem struct {
	ID     flexString `json:"id"`
	Title  flexString `json:"title"`
	Singer flexString `json:"singer"`
	PicURL flexString `json:"picurl"`
	Hit    flexString `json:"hit"`
}

type resolveData struct {
	RID      flexString `json:"rid"`
	Name     flexString `json:"name"`
	Artist   flexString `json:"artist"`
	Album    flexString `json:"album"`
	Quality  flexString `json:"quality"`
	Duration flexString `json:"duration"`
	Size     flexString `json:"size"`
	URL      flexString `json:"url"`
	Pic      flexString `json:"pic"`
	Lrc      flexString `json:"lrc"`
}

// flexString accepts JSON strings, numbers and null. the catalog is not
// consistent about which one it sends for ids and counters.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*f = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unexpected catalog value %s", raw)
		}
		*f = flexString(n.String())
	}
	return nil
}

func (f flexString) String() string {
	return string(f)
}

func (f flexString) Int() int {
	n, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return int(n)
}
