package replay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type DiscoverConfig struct {
	LeaderboardURLs []string
	// RequestDelay is slept between player pages.
	RequestDelay time.Duration
	// MaxPlayers caps players per leaderboard; 0 means all.
	MaxPlayers int
	UserAgent  string
	Client     *http.Client
	Logger     *slog.Logger
}

func DefaultDiscoverConfig() DiscoverConfig {
	return DiscoverConfig{
		LeaderboardURLs: []string{
			"https://play.battlesnake.com/leaderboard/standard",
			"https://play.battlesnake.com/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
		UserAgent:    "snekab-replay/1.0",
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// /leaderboard/{arena}/{username}/stats
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
)

// Discover crawls each leaderboard, then each listed player's stats page,
// and returns game ids in first-seen order. Ids for which skip returns true
// are left out. A failing leaderboard or player page is logged and skipped.
func Discover(ctx context.Context, cfg DiscoverConfig, skip func(id string) bool) ([]string, error) {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	seen := make(map[string]bool)
	var ids []string
	for _, board := range cfg.LeaderboardURLs {
		players, err := leaderboardPlayers(ctx, cfg, board)
		if err != nil {
			if ctx.Err() != nil {
				return ids, ctx.Err()
			}
			log.Warn("leaderboard failed", "url", board, "err", err)
			continue
		}
		if cfg.MaxPlayers > 0 && len(players) > cfg.MaxPlayers {
			players = players[:cfg.MaxPlayers]
		}
		log.Info("leaderboard", "url", board, "players", len(players))

		for i, statsURL := range players {
			if i > 0 && cfg.RequestDelay > 0 {
				select {
				case <-ctx.Done():
					return ids, ctx.Err()
				case <-time.After(cfg.RequestDelay):
				}
			}
			games, err := playerGames(ctx, cfg, statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return ids, ctx.Err()
				}
				log.Warn("player page failed", "url", statsURL, "err", err)
				continue
			}
			for _, id := range games {
				if seen[id] || (skip != nil && skip(id)) {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// leaderboardPlayers returns absolute stats-page URLs, one per player.
func leaderboardPlayers(ctx context.Context, cfg DiscoverConfig, board string) ([]string, error) {
	doc, base, err := fetch(ctx, cfg, board)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[m[1]] = true
		out = append(out, base.ResolveReference(ref).String())
	})
	return out, nil
}

func playerGames(ctx context.Context, cfg DiscoverConfig, statsURL string) ([]string, error) {
	doc, _, err := fetch(ctx, cfg, statsURL)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if m := gameIDRe.FindStringSubmatch(href); len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	})
	return out, nil
}

func fetch(ctx context.Context, cfg DiscoverConfig, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	resp, err := cfg.Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, req.URL, nil
}
