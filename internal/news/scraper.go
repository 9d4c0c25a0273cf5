package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/store"
	"signal-screener/internal/types"
)

// RedditSource reads post titles from a subreddit JSON listing.
type RedditSource struct {
	id           string
	url          string
	client       *resty.Client
	maxHeadlines int
}

var _ interfaces.HeadlineSource = (*RedditSource)(nil)

// NewRedditSource creates a source for a listing URL such as
// https://www.reddit.com/r/stocks/.json. maxHeadlines <= 0 means no cap.
func NewRedditSource(id, listingURL, userAgent string, timeout time.Duration, maxHeadlines int) *RedditSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")

	return &RedditSource{
		id:           id,
		url:          listingURL,
		client:       client,
		maxHeadlines: maxHeadlines,
	}
}

func (r *RedditSource) ID() string { return r.id }

// redditListing is the part of a listing the aggregator reads.
type redditListing struct {
	Data *struct {
		Children *[]struct {
			Data struct {
				Title *string `json:"title"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Headlines returns post titles in listing order.
func (r *RedditSource) Headlines(ctx context.Context) ([]string, error) {
	resp, err := r.client.R().SetContext(ctx).Get(r.url)
	if err != nil {
		return nil, &types.SourceFetchError{Source: r.id, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &types.SourceFetchError{Source: r.id, Err: fmt.Errorf("status %d from %s", resp.StatusCode(), r.url)}
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, &types.MalformedResponseError{Source: r.id, Reason: "decode listing: " + err.Error()}
	}
	if listing.Data == nil || listing.Data.Children == nil {
		return nil, &types.MalformedResponseError{Source: r.id, Reason: "missing data.children"}
	}

	headlines := make([]string, 0, len(*listing.Data.Children))
	for _, child := range *listing.Data.Children {
		if child.Data.Title == nil {
			continue
		}
		title := strings.TrimSpace(*child.Data.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, title)
		if r.maxHeadlines > 0 && len(headlines) >= r.maxHeadlines {
			break
		}
	}
	return headlines, nil
}

// HTMLSource scrapes the text of every element matching a CSS selector on a
// fixed page.
type HTMLSource struct {
	id           string
	url          string
	selector     string
	userAgent    string
	timeout      time.Duration
	maxHeadlines int
}

var _ interfaces.HeadlineSource = (*HTMLSource)(nil)

// NewHTMLSource creates a page scraper. maxHeadlines <= 0 means no cap.
func NewHTMLSource(id, pageURL, selector, userAgent string, timeout time.Duration, maxHeadlines int) *HTMLSource {
	return &HTMLSource{
		id:           id,
		url:          pageURL,
		selector:     selector,
		userAgent:    userAgent,
		timeout:      timeout,
		maxHeadlines: maxHeadlines,
	}
}

func (h *HTMLSource) ID() string { return h.id }

// Headlines visits the page once and returns the trimmed, non-empty texts of
// the matched elements in document order. A page on which the selector
// matches nothing is reported as malformed.
func (h *HTMLSource) Headlines(ctx context.Context) ([]string, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(h.url)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	if h.timeout > 0 {
		c.SetRequestTimeout(h.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", h.userAgent)
	})

	headlines := []string{}
	matched := 0
	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find(h.selector).Each(func(_ int, s *goquery.Selection) {
			matched++
			if h.maxHeadlines > 0 && len(headlines) >= h.maxHeadlines {
				return
			}
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			headlines = append(headlines, text)
		})
	})

	if err := c.Visit(h.url); err != nil {
		return nil, &types.SourceFetchError{Source: h.id, Err: fmt.Errorf("visit %s: %w", h.url, err)}
	}
	c.Wait()

	if matched == 0 {
		return nil, &types.MalformedResponseError{Source: h.id, Reason: fmt.Sprintf("expected markup %q missing", h.selector)}
	}
	return headlines, nil
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ErrMissingAPIKey is returned by keyed sources configured without a key.
var ErrMissingAPIKey = errors.New("api key not configured")

// FinnhubNewsSource reads the Finnhub general market news feed.
type FinnhubNewsSource struct {
	id           string
	client       *resty.Client
	apiKey       string
	maxHeadlines int
}

var _ interfaces.HeadlineSource = (*FinnhubNewsSource)(nil)

// NewFinnhubNewsSource creates a feed reader against baseURL, e.g.
// https://finnhub.io/api/v1. maxHeadlines <= 0 means no cap.
func NewFinnhubNewsSource(id, baseURL, apiKey string, timeout time.Duration, maxHeadlines int) *FinnhubNewsSource {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &FinnhubNewsSource{
		id:           id,
		client:       client,
		apiKey:       apiKey,
		maxHeadlines: maxHeadlines,
	}
}

func (f *FinnhubNewsSource) ID() string { return f.id }

type finnhubArticle struct {
	Headline *string `json:"headline"`
	Datetime int64   `json:"datetime"`
}

// Headlines returns the feed's headlines, newest first.
func (f *FinnhubNewsSource) Headlines(ctx context.Context) ([]string, error) {
	if f.apiKey == "" {
		return nil, &types.SourceFetchError{Source: f.id, Err: ErrMissingAPIKey}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": "general",
			"token":    f.apiKey,
		}).
		Get("/news")
	if err != nil {
		return nil, &types.SourceFetchError{Source: f.id, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &types.SourceFetchError{Source: f.id, Err: fmt.Errorf("API error %d", resp.StatusCode())}
	}

	var articles []finnhubArticle
	if err := json.Unmarshal(resp.Body(), &articles); err != nil {
		return nil, &types.MalformedResponseError{Source: f.id, Reason: "decode news list: " + err.Error()}
	}
	sort.SliceStable(articles, func(i, j int) bool { return articles[i].Datetime > articles[j].Datetime })

	headlines := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.Headline == nil {
			continue
		}
		h := strings.TrimSpace(*a.Headline)
		if h == "" {
			continue
		}
		headlines = append(headlines, h)
		if f.maxHeadlines > 0 && len(headlines) >= f.maxHeadlines {
			break
		}
	}
	return headlines, nil
}

// NewSource builds the headline source described by sc. apiKey is used by
// keyed feeds only.
func NewSource(sc store.SourceConfig, userAgent, apiKey string, timeout time.Duration) (interfaces.HeadlineSource, error) {
	switch sc.Kind {
	case "reddit":
		return NewRedditSource(sc.ID, sc.URL, userAgent, timeout, sc.MaxHeadlines), nil
	case "html":
		return NewHTMLSource(sc.ID, sc.URL, sc.Selector, userAgent, timeout, sc.MaxHeadlines), nil
	case "finnhub_news":
		return NewFinnhubNewsSource(sc.ID, sc.URL, apiKey, timeout, sc.MaxHeadlines), nil
	default:
		return nil, fmt.Errorf("unknown source kind '%s' for '%s'", sc.Kind, sc.ID)
	}
}
