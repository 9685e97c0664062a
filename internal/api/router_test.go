package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceNewsScanner/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var taipei = time.FixedZone("CST", 8*3600)

type stubNews struct {
	views     []domain.ArticleView
	viewer    int64
	summary   domain.Summary
	summErr   error
	toggleErr error
	toggled   [2]int64
}

func (s *stubNews) List(_ context.Context, viewerID int64) ([]domain.ArticleView, error) {
	s.viewer = viewerID
	out := make([]domain.ArticleView, len(s.views))
	copy(out, s.views)
	if viewerID != 0 {
		for i := range out {
			out[i].IsUpvoted = true
		}
	}
	return out, nil
}

func (s *stubNews) ToggleUpvote(_ context.Context, userID, articleID int64) (domain.UpvoteAction, error) {
	s.toggled = [2]int64{userID, articleID}
	if s.toggleErr != nil {
		return "", s.toggleErr
	}
	return domain.UpvoteAdded, nil
}

func (s *stubNews) Summarize(context.Context, string) (domain.Summary, error) {
	return s.summary, s.summErr
}

type stubSearch struct {
	results []domain.SearchResult
	err     error
}

func (s stubSearch) Search(context.Context, string) ([]domain.SearchResult, error) {
	return s.results, s.err
}

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, username, _ string) (domain.User, error) {
	if username == "taken" {
		return domain.User{}, domain.ErrUserExists
	}
	return domain.User{ID: 1, Username: username}, nil
}

func (stubAuth) Login(_ context.Context, username, password string) (string, error) {
	if username == "alice" && password == "pw" {
		return "good", nil
	}
	return "", domain.ErrInvalidCredentials
}

func (stubAuth) Authenticate(_ context.Context, token string) (domain.User, error) {
	if token == "good" {
		return domain.User{ID: 7, Username: "alice"}, nil
	}
	return domain.User{}, errors.New("bad token")
}

type stubPrices struct {
	err                 error
	category, commodity string
}

func (s *stubPrices) NecessityPrices(_ context.Context, category, commodity string) ([]domain.NecessityPrice, error) {
	s.category, s.commodity = category, commodity
	if s.err != nil {
		return nil, s.err
	}
	return []domain.NecessityPrice{{Category: category, Number: 1, Name: "雞蛋"}}, nil
}

func newTestRouter(news *stubNews, search stubSearch, prices *stubPrices) *gin.Engine {
	return NewRouter(Deps{
		News:           news,
		Search:         search,
		Auth:           stubAuth{},
		Prices:         prices,
		Gatherer:       prometheus.NewRegistry(),
		AllowedOrigins: []string{"http://localhost:8080"},
		Location:       taipei,
	})
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleViews() []domain.ArticleView {
	return []domain.ArticleView{{
		StoredArticle: domain.StoredArticle{
			ID:          3,
			URL:         "https://udn.com/a",
			Title:       "民生物價上漲",
			PublishedAt: time.Date(2024, 7, 30, 7, 20, 0, 0, time.UTC),
			Content:     "漲幅擴大",
			Summary:     "X",
			Reason:      "Y",
		},
		UpvoteCount: 2,
	}}
}

func TestListNewsRecordShape(t *testing.T) {
	t.Parallel()

	news := &stubNews{views: sampleViews()}
	w := do(newTestRouter(news, stubSearch{}, &stubPrices{}), http.MethodGet, "/api/v1/news/news", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{
		"id":         float64(3),
		"url":        "https://udn.com/a",
		"title":      "民生物價上漲",
		"time":       "2024-07-30 15:20",
		"content":    "漲幅擴大",
		"summary":    "X",
		"reason":     "Y",
		"upvotes":    float64(2),
		"is_upvoted": false,
	}, got[0])
	assert.Zero(t, news.viewer)
}

func TestUserNewsRequiresToken(t *testing.T) {
	t.Parallel()

	news := &stubNews{views: sampleViews()}
	r := newTestRouter(news, stubSearch{}, &stubPrices{})

	w := do(r, http.MethodGet, "/api/v1/news/user_news", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = do(r, http.MethodGet, "/api/v1/news/user_news", "", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/news/user_news", "", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), news.viewer)
	assert.Contains(t, w.Body.String(), `"is_upvoted":true`)
}

func TestSearchNewsNeverExposesErrors(t *testing.T) {
	t.Parallel()

	results := []domain.SearchResult{{
		ID: 1_000_000_000,
		SummarizedArticle: domain.SummarizedArticle{Article: domain.Article{
			URL: "https://udn.com/s", Title: "t", PublishedAt: time.Date(2024, 7, 30, 0, 0, 0, 0, taipei),
		}},
	}}

	r := newTestRouter(&stubNews{}, stubSearch{results: results}, &stubPrices{})
	w := do(r, http.MethodPost, "/api/v1/news/search_news", `{"prompt":"雞蛋"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":1000000000`)
	assert.Contains(t, w.Body.String(), `"time":"2024-07-30 00:00"`)

	r = newTestRouter(&stubNews{}, stubSearch{err: errors.New("secret upstream detail")}, &stubPrices{})
	w = do(r, http.MethodPost, "/api/v1/news/search_news", `{"prompt":"雞蛋"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/news/search_news", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewsSummary(t *testing.T) {
	t.Parallel()

	news := &stubNews{summary: domain.Summary{Effect: "X", Cause: "Y"}}
	r := newTestRouter(news, stubSearch{}, &stubPrices{})

	w := do(r, http.MethodPost, "/api/v1/news/news_summary", `{"content":"漲幅擴大"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/news/news_summary", `{"content":"漲幅擴大"}`, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"X","reason":"Y"}`, w.Body.String())

	news.summErr = &domain.SummaryError{}
	w = do(r, http.MethodPost, "/api/v1/news/news_summary", `{"content":"漲幅擴大"}`, "good")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUpvote(t *testing.T) {
	t.Parallel()

	news := &stubNews{}
	r := newTestRouter(news, stubSearch{}, &stubPrices{})

	w := do(r, http.MethodPost, "/api/v1/news/3/upvote", "", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Article upvoted"}`, w.Body.String())
	assert.Equal(t, [2]int64{7, 3}, news.toggled)

	w = do(r, http.MethodPost, "/api/v1/news/abc/upvote", "", "good")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	news.toggleErr = domain.ErrNotFound
	w = do(r, http.MethodPost, "/api/v1/news/99/upvote", "", "good")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubNews{}, stubSearch{}, &stubPrices{})

	w := do(r, http.MethodPost, "/api/v1/users/register", `{"username":"bob","password":"pw"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/v1/users/register", `{"username":"taken","password":"pw"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"bad"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access_token":"good","token_type":"bearer"}`, w.Body.String())

	form := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("username=alice&password=pw"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, form)
	assert.Equal(t, http.StatusOK, rec.Code, "form login is accepted")

	w = do(r, http.MethodGet, "/api/v1/users/me", "", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice"}`, w.Body.String())
}

func TestNecessitiesPrice(t *testing.T) {
	t.Parallel()

	prices := &stubPrices{}
	r := newTestRouter(&stubNews{}, stubSearch{}, prices)

	w := do(r, http.MethodGet, "/api/v1/prices/necessities-price?category=%E8%9B%8B%E9%A1%9E&commodity=x", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "蛋類", prices.category)
	assert.Equal(t, "x", prices.commodity)
	assert.Contains(t, w.Body.String(), `"產品名稱":"雞蛋"`)

	prices.err = errors.New("upstream")
	w = do(r, http.MethodGet, "/api/v1/prices/necessities-price", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	healthy := NewRouter(Deps{Gatherer: prometheus.NewRegistry()})
	w := do(healthy, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(healthy, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewRouter(Deps{Health: func(context.Context) error { return errors.New("db down") }})
	w = do(down, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubNews{}, stubSearch{}, &stubPrices{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/news/news", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
}
