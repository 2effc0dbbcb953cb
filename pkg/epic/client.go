package epic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/fredbot/fred/internal/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const (
	storeBaseURL = "https://www.epicgames.com/store/p/"
	fetchTimeout = 10 * time.Second
)

// Config carries everything NewClient needs.
type Config struct {
	URL          string
	APIKey       string
	Host         string // x-rapidapi-host header; derived from URL when empty
	BudgetPath   string
	MonthlyLimit int
	WarnAt       int
}

// Client talks to the free-games feed. Fetches must not run concurrently
// with each other; the reconcile engine serializes them.
type Client struct {
	http   *retryablehttp.Client
	url    string
	apiKey string
	host   string
	budget *Budget
}

func NewClient(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 2
	retryClient.HTTPClient.Timeout = fetchTimeout

	host := cfg.Host
	if host == "" {
		if u, err := url.Parse(cfg.URL); err == nil {
			host = u.Host
		}
	}

	return &Client{
		http:   retryClient,
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		host:   host,
		budget: NewBudget(cfg.BudgetPath, cfg.MonthlyLimit, cfg.WarnAt),
	}
}

// Fetch retrieves one snapshot of the current and upcoming free games. Any
// transport error, non-200 status, or malformed body is returned as an
// error; callers must treat that as "no new information", never as an
// empty catalog. The call counter is bumped per attempt, successful or not.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	count := c.budget.Bump(time.Now())
	utils.Log.Debugf("API call #%d this month", count)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching free games: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("free games API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading free games response: %w", err)
	}

	return parseSnapshot(string(body))
}

func parseSnapshot(body string) (*Snapshot, error) {
	if !gjson.Valid(body) {
		return nil, errors.New("free games API returned invalid JSON")
	}

	root := gjson.Parse(body)
	current := root.Get("currentGames")
	upcoming := root.Get("nextGames")
	if !current.Exists() && !upcoming.Exists() {
		return nil, errors.New("free games response has neither currentGames nor nextGames")
	}

	snap := &Snapshot{}
	current.ForEach(func(_, g gjson.Result) bool {
		snap.Current = append(snap.Current, parseGame(g, false))
		return true
	})
	upcoming.ForEach(func(_, g gjson.Result) bool {
		snap.Upcoming = append(snap.Upcoming, parseGame(g, true))
		return true
	})
	return snap, nil
}

func parseGame(g gjson.Result, upcoming bool) Game {
	game := Game{
		Title:       g.Get("title").String(),
		Description: g.Get("description").String(),
		Seller:      g.Get("seller.name").String(),
	}

	if slug := g.Get("urlSlug").String(); slug != "" {
		game.URL = storeBaseURL + slug
	}

	g.Get("keyImages").ForEach(func(_, img gjson.Result) bool {
		game.Images = append(game.Images, Image{
			Type: img.Get("type").String(),
			URL:  img.Get("url").String(),
		})
		return true
	})

	if upcoming {
		game.FreeFrom = parseWindowTime(g.Get("effectiveDate").String())
	} else {
		game.FreeUntil = parseWindowTime(g.Get("promotions.promotionalOffers.0.promotionalOffers.0.endDate").String())
	}
	return game
}

// Feed timestamps are UTC; the store region we track is one hour ahead, so
// the offset is applied once here and the result displayed as-is.
func parseWindowTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.Add(time.Hour)
	return &t
}
