package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/service"
	"shortlink-platform/internal/store"
	"shortlink-platform/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	service *service.ShortLinkService
}

// NewShortLinkHandler 创建处理器实例
func NewShortLinkHandler(svc *service.ShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{service: svc}
}

// IndexPage 首页
func (h *ShortLinkHandler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortLinkRequest 创建短链接的请求体
type CreateShortLinkRequest struct {
	OriginalURL string `json:"original_url" binding:"required" example:"https://github.com/gin-gonic/gin"`
}

// ShortLinkData 创建成功后返回的数据
type ShortLinkData struct {
	ID           uint      `json:"id"`
	ShortCode    string    `json:"short_code"`
	OriginalURL  string    `json:"original_url"`
	FullShortURL string    `json:"full_short_url"`
	Clicks       int64     `json:"clicks"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建一个新的短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   url  body   CreateShortLinkRequest  true  "长链接 URL"
// @Success 201 {object} gin.H "成功响应"
// @Failure 400 {object} gin.H "URL 无效或短码冲突"
// @Failure 401 {object} gin.H "未认证"
// @Router /url/shorten [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "未认证"})
		return
	}

	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的请求数据: " + err.Error()})
		return
	}

	link, err := h.service.Create(c.Request.Context(), userID, req.OriginalURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的 URL"})
		case errors.Is(err, store.ErrDuplicateCode):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "短码冲突，请重试"})
		default:
			zap.S().Errorf("创建短链接失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "创建短链接失败"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": ShortLinkData{
			ID:           link.ID,
			ShortCode:    link.ShortCode,
			OriginalURL:  link.OriginalURL,
			FullShortURL: h.service.FullShortURL(link.ShortCode),
			Clicks:       link.Clicks,
			CreatedAt:    link.CreatedAt,
		},
	})
}

// RedirectToOriginal godoc
// @Summary 短码重定向
// @Description 跳转到短码对应的原始 URL，点击追踪在后台完成
// @Tags ShortLink
// @Success 302 "重定向"
// @Failure 404 "未找到"
// @Router /url/{shortCode} [get]
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	code := c.Param("shortCode")
	meta := clickMetaFromRequest(c)

	target, err := h.service.Resolve(c.Request.Context(), code, meta)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.HTML(http.StatusNotFound, "not-found.html", gin.H{"short_code": code})
			return
		}
		zap.S().Errorf("解析短码 %s 失败: %v", code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "重定向失败"})
		return
	}

	c.Redirect(http.StatusFound, target)
}

// GetUserLinks godoc
// @Summary 我的短链接列表
// @Description 分页返回当前用户创建的短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   page   query  int  false  "页码"
// @Param   limit  query  int  false  "每页数量"
// @Success 200 {object} gin.H "成功响应"
// @Router /url/urls [get]
func (h *ShortLinkHandler) GetUserLinks(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "未认证"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	links, total, err := h.service.List(userID, page, limit)
	if err != nil {
		zap.S().Errorf("查询用户 %d 的短链接失败: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "获取链接失败"})
		return
	}

	urls := make([]ShortLinkData, 0, len(links))
	for _, link := range links {
		urls = append(urls, ShortLinkData{
			ID:           link.ID,
			ShortCode:    link.ShortCode,
			OriginalURL:  link.OriginalURL,
			FullShortURL: h.service.FullShortURL(link.ShortCode),
			Clicks:       link.Clicks,
			CreatedAt:    link.CreatedAt,
		})
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"urls":    urls,
		"pagination": gin.H{
			"total":       total,
			"page":        page,
			"limit":       limit,
			"total_pages": totalPages,
		},
	})
}

// GetAnalytics godoc
// @Summary 短链接统计
// @Description 返回短链接的点击统计，带缓存来源标记
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   shortCode  path  string  true  "短码"
// @Success 200 {object} gin.H "成功响应"
// @Failure 403 {object} gin.H "非属主"
// @Failure 404 {object} gin.H "未找到"
// @Router /url/analytics/{shortCode} [get]
func (h *ShortLinkHandler) GetAnalytics(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "未认证"})
		return
	}

	code := c.Param("shortCode")
	snapshot, source, err := h.service.Analytics(c.Request.Context(), code, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "短链接不存在"})
		case errors.Is(err, store.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "没有查看该链接统计的权限"})
		default:
			zap.S().Errorf("获取短码 %s 的统计失败: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "获取统计失败"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": snapshot, "source": source})
}

// DeleteLink godoc
// @Summary 删除短链接
// @Description 软删除短链接并同步清除缓存
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "短链接 ID"
// @Success 200 {object} gin.H "成功响应"
// @Failure 403 {object} gin.H "非属主"
// @Failure 404 {object} gin.H "未找到"
// @Router /url/delete/{id} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "未认证"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的链接 ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), uint(id), userID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "短链接不存在"})
		case errors.Is(err, store.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "没有删除该链接的权限"})
		default:
			zap.S().Errorf("删除短链接 %d 失败: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "删除失败"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "删除成功"})
}

// clickMetaFromRequest 从请求头提取追踪元信息，空值记为 null
func clickMetaFromRequest(c *gin.Context) tracker.ClickMeta {
	return tracker.ClickMeta{
		Referrer:  nullable(c.GetHeader("Referer")),
		UserAgent: nullable(c.Request.UserAgent()),
		IPAddress: nullable(c.ClientIP()),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
