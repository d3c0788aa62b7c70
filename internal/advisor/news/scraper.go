package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"swarm-trading-bot/internal/logger"
)

// Article is one scraped headline with whatever body text was reachable.
type Article struct {
	Title       string
	URL         string
	Content     string
	Source      string
	PublishedAt string
	Token       string
}

// Source defines a crypto news site and the selectors to read it.
type Source struct {
	Name       string
	BaseURL    string
	SearchPath string // "{token}" is replaced with the lowercased token
	Selectors  Selectors
	RateLimit  time.Duration
}

type Selectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Content          string
	PublishedAt      string
}

// Scraper pulls recent articles for a token from multiple sources.
type Scraper struct {
	sources []Source
	timeout time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{sources: defaultSources(), timeout: timeout}
}

func defaultSources() []Source {
	return []Source{
		{
			Name:       "CoinDesk",
			BaseURL:    "https://www.coindesk.com",
			SearchPath: "/search?s={token}",
			Selectors: Selectors{
				ArticleContainer: "div.searchstudio-js-result",
				Title:            "h6 a, h5 a",
				URL:              "h6 a, h5 a",
				Content:          "p",
				PublishedAt:      "time",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "CoinTelegraph",
			BaseURL:    "https://cointelegraph.com",
			SearchPath: "/tags/{token}",
			Selectors: Selectors{
				ArticleContainer: "article",
				Title:            "a span",
				URL:              "a",
				Content:          "p",
				PublishedAt:      "time",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "Decrypt",
			BaseURL:    "https://decrypt.co",
			SearchPath: "/search?q={token}",
			Selectors: Selectors{
				ArticleContainer: "article",
				Title:            "h3 a, h4 a",
				URL:              "h3 a, h4 a",
				Content:          "p",
				PublishedAt:      "time",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// Scrape fetches up to maxArticles headlines for a token across all sources.
// A failing source is skipped, never fatal.
func (s *Scraper) Scrape(ctx context.Context, token string, maxArticles int) ([]Article, error) {
	perSource := maxArticles / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	var all []Article
	for i, src := range s.sources {
		articles, err := s.scrapeSource(ctx, src, token, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", src.Name, "token", token)
			continue
		}
		all = append(all, articles...)

		// Rate limit between sources only; nothing follows the last one.
		if i == len(s.sources)-1 {
			break
		}
		select {
		case <-time.After(src.RateLimit):
		case <-ctx.Done():
			return all, ctx.Err()
		}
	}

	logger.Info(ctx, "News scraping completed", "token", token, "articles", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, src Source, token string, maxArticles int) ([]Article, error) {
	var articles []Article

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(src.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(src.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= maxArticles {
			return
		}

		title := strings.TrimSpace(e.ChildText(src.Selectors.Title))
		if title == "" {
			return
		}
		articleURL := e.ChildAttr(src.Selectors.URL, "href")
		if articleURL == "" {
			return
		}
		if !strings.HasPrefix(articleURL, "http") {
			articleURL = src.BaseURL + articleURL
		}

		articles = append(articles, Article{
			Title:       title,
			URL:         articleURL,
			Content:     strings.TrimSpace(e.ChildText(src.Selectors.Content)),
			Source:      src.Name,
			PublishedAt: strings.TrimSpace(e.ChildText(src.Selectors.PublishedAt)),
			Token:       token,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", src.Name, "url", r.Request.URL.String())
	})

	searchURL := src.BaseURL + strings.ReplaceAll(src.SearchPath, "{token}", strings.ToLower(token))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", searchURL, err)
	}
	c.Wait()

	return s.enrich(ctx, articles), nil
}

// enrich pulls full body text for articles whose listing snippet was thin.
func (s *Scraper) enrich(ctx context.Context, articles []Article) []Article {
	for i := range articles {
		if len(articles[i].Content) >= 100 {
			continue
		}
		if body := s.fetchBody(ctx, articles[i].URL); body != "" {
			articles[i].Content = body
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return articles
		}
	}
	return articles
}

// fetchBody extracts paragraph text from an article page.
func (s *Scraper) fetchBody(ctx context.Context, articleURL string) string {
	c := colly.NewCollector()
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	})

	var content string
	c.OnHTML("article, div.article-body, div.post-content, div.at-content", func(e *colly.HTMLElement) {
		var paragraphs []string
		e.DOM.Find("p").Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		content = strings.Join(paragraphs, "\n\n")
	})

	if err := c.Visit(articleURL); err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch article body", err, "url", articleURL)
		return ""
	}
	return content
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
