package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"shortlink-platform/internal/cache"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/shortcode"
	"shortlink-platform/internal/store"
	"shortlink-platform/internal/tracker"

	"go.uber.org/zap"
)

// ErrInvalidURL 原始 URL 不是合法的绝对 URI
var ErrInvalidURL = errors.New("无效的 URL")

// 统计快照来源标记
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

// Options 服务配置项
type Options struct {
	BaseURL        string
	CodeLength     int
	CodeMaxRetries int
}

// ShortLinkService 核心编排层：创建、解析、删除、统计
// 缓存只做加速，持久层永远是权威；追踪永远不阻塞重定向
type ShortLinkService struct {
	store   *store.Store
	cache   cache.Cache
	tracker *tracker.Tracker
	opts    Options
	logger  *zap.SugaredLogger
}

// New 创建服务实例
func New(s *store.Store, c cache.Cache, t *tracker.Tracker, opts Options, logger *zap.SugaredLogger) *ShortLinkService {
	if opts.CodeLength <= 0 {
		opts.CodeLength = shortcode.DefaultLength
	}
	if opts.CodeMaxRetries <= 0 {
		opts.CodeMaxRetries = 1
	}
	return &ShortLinkService{
		store:   s,
		cache:   c,
		tracker: t,
		opts:    opts,
		logger:  logger.Named("shortlink_service"),
	}
}

// FullShortURL 用配置的基础地址拼出完整短链接
func (s *ShortLinkService) FullShortURL(code string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/url/" + code
}

// Create 为原始 URL 分配短码并持久化
// 短码冲突时重新生成，次数由配置决定（默认 1 次）；
// 重试后仍冲突则把持久层的唯一索引错误原样上抛
func (s *ShortLinkService) Create(ctx context.Context, userID uint, originalURL string) (*model.ShortLink, error) {
	if !isAbsoluteURL(originalURL) {
		return nil, ErrInvalidURL
	}

	code, err := shortcode.Generate(s.opts.CodeLength)
	if err != nil {
		return nil, err
	}
	for i := 0; i < s.opts.CodeMaxRetries && s.store.ShortCodeExists(code); i++ {
		// 尽力规避：检查与插入之间本就存在竞争窗口，最终兜底是唯一索引
		code, err = shortcode.Generate(s.opts.CodeLength)
		if err != nil {
			return nil, err
		}
	}

	link, err := s.store.CreateShortLink(userID, originalURL, code)
	if err != nil {
		return nil, err
	}

	// 预热缓存，失败不影响创建结果
	s.cache.Set(ctx, cache.KeyURL(link.ShortCode), link.OriginalURL)
	return link, nil
}

// Resolve 把短码解析为目标 URL，优先走缓存
// 命中时在后台补查记录并触发追踪；未命中则回源并回填缓存
func (s *ShortLinkService) Resolve(ctx context.Context, code string, meta tracker.ClickMeta) (string, error) {
	if cached, ok := s.cache.Get(ctx, cache.KeyURL(code)); ok {
		go s.trackByCode(code, meta)
		return cached, nil
	}

	link, err := s.store.FindShortLinkByCode(code)
	if err != nil {
		return "", err
	}

	s.cache.Set(ctx, cache.KeyURL(code), link.OriginalURL)
	s.tracker.Track(link.ID, meta)
	return link.OriginalURL, nil
}

// trackByCode 缓存命中路径的后台追踪：先补查出主键再提交任务
func (s *ShortLinkService) trackByCode(code string, meta tracker.ClickMeta) {
	link, err := s.store.FindShortLinkByCode(code)
	if err != nil {
		s.logger.Warnf("追踪前查询短码 %s 失败: %v", code, err)
		return
	}
	s.tracker.Track(link.ID, meta)
}

// List 分页返回属主的短链接，新建在前
func (s *ShortLinkService) List(userID uint, page, limit int) ([]model.ShortLink, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.store.FindShortLinksByOwner(userID, limit, (page-1)*limit)
}

// Delete 软删除短链接并同步清掉缓存条目
// 缓存清理必须与删除同步完成，把陈旧窗口压缩到删除调用本身
func (s *ShortLinkService) Delete(ctx context.Context, id, userID uint) error {
	link, err := s.store.DeleteShortLink(id, userID)
	if err != nil {
		return err
	}
	s.cache.Delete(ctx, cache.KeyURL(link.ShortCode))
	return nil
}

// AnalyticsSnapshot 返回给属主的统计快照
type AnalyticsSnapshot struct {
	ShortLink     model.ShortLink      `json:"short_link"`
	TotalClicks   int64                `json:"total_clicks"`
	RawEvents     []model.ClickEvent   `json:"raw_events"`
	ReferrerStats []store.ReferrerStat `json:"referrer_stats"`
	CountryStats  []store.CountryStat  `json:"country_stats"`
	ClicksByDay   []store.DayStat      `json:"clicks_by_day"`
}

// Analytics 返回短链接的统计快照及其来源标记
// 快照写入缓存后不随新点击失效，在 TTL 窗口内允许滞后于实时计数
func (s *ShortLinkService) Analytics(ctx context.Context, code string, userID uint) (*AnalyticsSnapshot, string, error) {
	link, err := s.store.FindShortLinkByCode(code)
	if err != nil {
		return nil, "", err
	}
	if link.UserID != userID {
		return nil, "", store.ErrForbidden
	}

	key := cache.KeyAnalytics(link.ID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var snapshot AnalyticsSnapshot
		if uerr := json.Unmarshal([]byte(raw), &snapshot); uerr == nil {
			return &snapshot, SourceCache, nil
		} else {
			s.logger.Warnf("统计快照反序列化失败 key=%s: %v", key, uerr)
		}
	}

	aggregated, err := s.store.AggregateAnalytics(link.ID)
	if err != nil {
		return nil, "", err
	}

	snapshot := &AnalyticsSnapshot{
		ShortLink:     *link,
		TotalClicks:   aggregated.TotalClicks,
		RawEvents:     aggregated.RawEvents,
		ReferrerStats: aggregated.ReferrerStats,
		CountryStats:  aggregated.CountryStats,
		ClicksByDay:   aggregated.ClicksByDay,
	}

	if data, err := json.Marshal(snapshot); err == nil {
		s.cache.Set(ctx, key, string(data))
	}
	return snapshot, SourceDatabase, nil
}

// isAbsoluteURL 判断是否为带主机名的绝对 URI
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
