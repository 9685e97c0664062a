package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

type articleResponse struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Time      string `json:"time"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
	Reason    string `json:"reason"`
	Upvotes   int    `json:"upvotes"`
	IsUpvoted bool   `json:"is_upvoted"`
}

type searchResponse struct {
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Time    string `json:"time"`
	Content string `json:"content"`
	Summary string `json:"summary,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type promptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type summaryRequest struct {
	Content string `json:"content" binding:"required"`
}

type credentialsRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *handlers) formatTime(t time.Time) string {
	return t.In(h.deps.Location).Format(timeLayout)
}

func (h *handlers) listNews(c *gin.Context) {
	h.writeArticles(c, 0)
}

func (h *handlers) listUserNews(c *gin.Context) {
	user, _ := currentUser(c)
	h.writeArticles(c, user.ID)
}

func (h *handlers) writeArticles(c *gin.Context, viewerID int64) {
	views, err := h.deps.News.List(c.Request.Context(), viewerID)
	if err != nil {
		h.logger.Error("list articles", zap.Error(err))
		abortDetail(c, http.StatusInternalServerError, "could not load news")
		return
	}

	out := make([]articleResponse, 0, len(views))
	for _, v := range views {
		out = append(out, articleResponse{
			ID:        v.ID,
			URL:       v.URL,
			Title:     v.Title,
			Time:      h.formatTime(v.PublishedAt),
			Content:   v.Content,
			Summary:   v.Summary,
			Reason:    v.Reason,
			Upvotes:   v.UpvoteCount,
			IsUpvoted: v.IsUpvoted,
		})
	}
	c.JSON(http.StatusOK, out)
}

// searchNews always answers 200; failures surface as fewer (or no) results.
func (h *handlers) searchNews(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "prompt is required")
		return
	}

	results, err := h.deps.Search.Search(c.Request.Context(), req.Prompt)
	if err != nil {
		h.logger.Warn("search degraded", zap.String("prompt", req.Prompt), zap.Error(err))
	}

	out := make([]searchResponse, 0, len(results))
	for _, r := range results {
		out = append(out, searchResponse{
			ID:      r.ID,
			URL:     r.URL,
			Title:   r.Title,
			Time:    h.formatTime(r.PublishedAt),
			Content: r.Content,
			Summary: r.Summary,
			Reason:  r.Reason,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) newsSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "content is required")
		return
	}

	summary, err := h.deps.News.Summarize(c.Request.Context(), req.Content)
	if err != nil {
		h.logger.Warn("summary request failed", zap.Error(err))
		abortDetail(c, http.StatusBadGateway, "summary unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary.Effect, "reason": summary.Cause})
}

func (h *handlers) upvote(c *gin.Context) {
	articleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || articleID < 1 {
		abortDetail(c, http.StatusBadRequest, "invalid article id")
		return
	}
	user, _ := currentUser(c)

	action, err := h.deps.News.ToggleUpvote(c.Request.Context(), user.ID, articleID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortDetail(c, http.StatusNotFound, "Article not found")
	case err != nil:
		h.logger.Error("toggle upvote", zap.Int64("article_id", articleID), zap.Error(err))
		abortDetail(c, http.StatusInternalServerError, "could not update upvote")
	default:
		c.JSON(http.StatusOK, gin.H{"message": string(action)})
	}
}

func (h *handlers) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.deps.Auth.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		abortDetail(c, http.StatusConflict, "Username already registered")
	case err != nil:
		h.logger.Error("register user", zap.Error(err))
		abortDetail(c, http.StatusInternalServerError, "could not register user")
	default:
		c.JSON(http.StatusCreated, gin.H{"username": user.Username})
	}
}

func (h *handlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		abortDetail(c, http.StatusUnauthorized, "Incorrect username or password")
	case err != nil:
		h.logger.Error("login", zap.Error(err))
		abortDetail(c, http.StatusInternalServerError, "could not log in")
	default:
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
	}
}

func (h *handlers) me(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

func (h *handlers) necessitiesPrice(c *gin.Context) {
	if h.deps.Prices == nil {
		abortDetail(c, http.StatusServiceUnavailable, "price feed is not configured")
		return
	}

	prices, err := h.deps.Prices.NecessityPrices(c.Request.Context(), c.Query("category"), c.Query("commodity"))
	if err != nil {
		h.logger.Warn("price feed failed", zap.Error(err))
		abortDetail(c, http.StatusBadGateway, "price feed unavailable")
		return
	}
	if prices == nil {
		prices = []domain.NecessityPrice{}
	}
	c.JSON(http.StatusOK, prices)
}
