package parser

import (
	"bytes"
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

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

const (
	titleSelector   = "h1.article-content__title"
	timeSelector    = "time.article-content__time"
	sectionSelector = "section.article-content__editor"

	boilerplateMarker = "▪"
	maxListingBytes   = 4 << 20
)

var publishLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	time.RFC3339,
}

// UDNSite crawls the UDN search listing API and its article pages.
type UDNSite struct {
	name       string
	listingURL string
	baseURL    *url.URL
	domain     string
	channelID  int
	userAgent  string
	location   *time.Location
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ ports.NewsSite = (*UDNSite)(nil)

// NewUDNSite wires an HTTP client; a nil client gets one with the configured timeout.
func NewUDNSite(cfg config.SiteConfig, loc *time.Location, client *http.Client, logger *zap.Logger) (*UDNSite, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid site base url %q", cfg.BaseURL)
	}
	registrable, err := registrableDomain(base.Hostname())
	if err != nil {
		return nil, fmt.Errorf("site base url %q: %w", cfg.BaseURL, err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	name := cfg.Name
	if name == "" {
		name = "udn"
	}

	return &UDNSite{
		name:       name,
		listingURL: cfg.ListingURL,
		baseURL:    base,
		domain:     registrable,
		channelID:  cfg.ChannelID,
		userAgent:  cfg.UserAgent,
		location:   loc,
		client:     client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

// Name identifies the site inside the registry.
func (s *UDNSite) Name() string {
	return s.name
}

// FetchHeadlines returns one page of search results in listing order.
func (s *UDNSite) FetchHeadlines(ctx context.Context, searchTerm string, page int) ([]domain.Headline, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}

	listing, err := buildListingURL(s.listingURL, searchTerm, page, s.channelID)
	if err != nil {
		return nil, &domain.FetchError{Page: page, Err: err}
	}

	body, err := s.get(ctx, listing, maxListingBytes)
	if err != nil {
		return nil, &domain.FetchError{Page: page, URL: listing, Err: err}
	}

	headlines, err := s.decodeListing(body)
	if err != nil {
		return nil, &domain.FetchError{Page: page, URL: listing, Err: err}
	}

	s.logger.Debug("listing page fetched", zap.Int("page", page), zap.Int("headlines", len(headlines)))
	return headlines, nil
}

// FetchHeadlineRange concatenates pages pageStart..pageEnd (inclusive) in page order.
// A failed page contributes no headlines; every page failure is returned joined.
func (s *UDNSite) FetchHeadlineRange(ctx context.Context, searchTerm string, pageStart, pageEnd int) ([]domain.Headline, error) {
	if pageStart < 1 || pageEnd < pageStart {
		return nil, fmt.Errorf("invalid page range %d..%d", pageStart, pageEnd)
	}

	var (
		all  []domain.Headline
		errs []error
	)
	for page := pageStart; page <= pageEnd; page++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		headlines, err := s.FetchHeadlines(ctx, searchTerm, page)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, headlines...)
	}

	return all, errors.Join(errs...)
}

// ParseArticle fetches an article page and extracts title, publish time and body.
func (s *UDNSite) ParseArticle(ctx context.Context, rawURL string) (domain.Article, error) {
	if err := s.checkDomain(rawURL); err != nil {
		return domain.Article{}, err
	}

	body, err := s.get(ctx, rawURL, 0)
	if err != nil {
		return domain.Article{}, &domain.FetchError{URL: rawURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "document", Err: err}
	}

	return extractArticle(doc, rawURL, s.location)
}

func (s *UDNSite) checkDomain(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return &domain.DomainMismatchError{URL: rawURL, Domain: s.domain}
	}
	registrable, err := registrableDomain(parsed.Hostname())
	if err != nil || registrable != s.domain {
		return &domain.DomainMismatchError{URL: rawURL, Domain: s.domain}
	}
	return nil
}

func (s *UDNSite) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

type listingResponse struct {
	Lists []struct {
		Title     string `json:"title"`
		TitleLink string `json:"titleLink"`
	} `json:"lists"`
}

func (s *UDNSite) decodeListing(body []byte) ([]domain.Headline, error) {
	var payload listingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	headlines := make([]domain.Headline, 0, len(payload.Lists))
	for _, item := range payload.Lists {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.TitleLink)
		if title == "" || link == "" {
			continue
		}
		ref, err := url.Parse(link)
		if err != nil {
			s.logger.Debug("skip malformed headline link", zap.String("link", link), zap.Error(err))
			continue
		}
		headlines = append(headlines, domain.Headline{
			Title: title,
			URL:   s.baseURL.ResolveReference(ref).String(),
		})
	}
	return headlines, nil
}

func extractArticle(doc *goquery.Document, rawURL string, loc *time.Location) (domain.Article, error) {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if title == "" {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "title"}
	}

	timeText := strings.TrimSpace(doc.Find(timeSelector).First().Text())
	if timeText == "" {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "publish time"}
	}
	publishedAt, err := parsePublishTime(timeText, loc)
	if err != nil {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "publish time", Err: err}
	}

	section := doc.Find(sectionSelector).First()
	if section.Length() == 0 {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "content section"}
	}

	content := extractContent(section)
	if content == "" {
		return domain.Article{}, &domain.ParseError{URL: rawURL, Field: "content"}
	}

	return domain.Article{
		URL:         rawURL,
		Title:       title,
		PublishedAt: publishedAt,
		Content:     content,
	}, nil
}

// extractContent joins the section's paragraphs, dropping blank ones and
// those carrying the boilerplate marker.
func extractContent(section *goquery.Selection) string {
	var paragraphs []string
	section.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text == "" || strings.Contains(text, boilerplateMarker) {
			return
		}
		paragraphs = append(paragraphs, text)
	})
	return strings.Join(paragraphs, " ")
}

func parsePublishTime(text string, loc *time.Location) (time.Time, error) {
	for _, layout := range publishLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", text)
}

func buildListingURL(base, searchTerm string, page, channelID int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("id", "search:"+url.PathEscape(searchTerm))
	query.Set("channelId", strconv.Itoa(channelID))
	query.Set("type", "searchword")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func registrableDomain(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || net.ParseIP(host) != nil {
		return host, nil
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}
