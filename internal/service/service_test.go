package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"shortlink-platform/internal/cache"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/store"
	"shortlink-platform/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

type testEnv struct {
	service *ShortLinkService
	store   *store.Store
	cache   cache.Cache
	tracker *tracker.Tracker
}

// newTestEnv 初始化内存数据库、进程内缓存和追踪器
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ShortLink{}, &model.ClickEvent{}))

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	linkStore := store.New(db, sugar)
	linkCache := cache.NewMemory(time.Minute)
	clickTracker := tracker.New(linkStore, 1, 64, sugar)
	clickTracker.Start()
	t.Cleanup(clickTracker.Stop)

	svc := New(linkStore, linkCache, clickTracker, Options{
		BaseURL:        "http://localhost:8080",
		CodeLength:     7,
		CodeMaxRetries: 1,
	}, sugar)

	return &testEnv{service: svc, store: linkStore, cache: linkCache, tracker: clickTracker}
}

func strPtr(s string) *string { return &s }

func TestCreate_InvalidURLRejectedBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, raw := range []string{"", "not-a-url", "/relative/path", "example.com/no-scheme"} {
		_, err := env.service.Create(ctx, 1, raw)
		assert.ErrorIs(t, err, ErrInvalidURL, "输入 %q 应被拒绝", raw)
	}
}

// 创建后立即解析（缓存已预热）必须返回原始 URL
func TestCreateThenResolve_WarmPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/page")
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 7)
	assert.Equal(t, "http://localhost:8080/url/"+link.ShortCode, env.service.FullShortURL(link.ShortCode))

	// 创建已预热缓存
	cached, ok := env.cache.Get(ctx, cache.KeyURL(link.ShortCode))
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/page", cached)

	target, err := env.service.Resolve(ctx, link.ShortCode, tracker.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", target)
}

// 缓存冷读路径必须与热读一致，并把缓存回填作为副作用
func TestResolve_ColdPathRepopulatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/cold")
	require.NoError(t, err)

	// 模拟缓存条目过期或被驱逐
	env.cache.Delete(ctx, cache.KeyURL(link.ShortCode))
	_, ok := env.cache.Get(ctx, cache.KeyURL(link.ShortCode))
	require.False(t, ok)

	target, err := env.service.Resolve(ctx, link.ShortCode, tracker.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cold", target)

	// 回源后缓存应重新命中
	cached, ok := env.cache.Get(ctx, cache.KeyURL(link.ShortCode))
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/cold", cached)
}

func TestResolve_UnknownCode(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Resolve(context.Background(), "nothere", tracker.ClickMeta{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// 删除必须同步清掉缓存条目：即使 TTL 未到，短码也立即不可解析
func TestDelete_InvalidatesCacheSynchronously(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/gone")
	require.NoError(t, err)

	// 缓存处于预热状态
	_, ok := env.cache.Get(ctx, cache.KeyURL(link.ShortCode))
	require.True(t, ok)

	require.NoError(t, env.service.Delete(ctx, link.ID, 1))

	_, ok = env.cache.Get(ctx, cache.KeyURL(link.ShortCode))
	assert.False(t, ok, "删除后缓存条目必须已被清除")

	_, err = env.service.Resolve(ctx, link.ShortCode, tracker.ClickMeta{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_OwnershipChecked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com")
	require.NoError(t, err)

	err = env.service.Delete(ctx, link.ID, 2)
	assert.ErrorIs(t, err, store.ErrForbidden)
}

// 每次热读都独立触发一次追踪，即使解析在缓存上短路
func TestResolve_WarmHitsStillTrackEachRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/hot")
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := env.service.Resolve(ctx, link.ShortCode, tracker.ClickMeta{})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		found, err := env.store.FindShortLinkByID(link.ID)
		return err == nil && found.Clicks == n
	}, 3*time.Second, 20*time.Millisecond, "每次重定向都应落一次点击")
}

func TestAnalytics_SourceTaggingAndRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/stats")
	require.NoError(t, err)

	// 3 次来自不同 referrer 的点击
	for _, ref := range []string{"https://google.com", "https://twitter.com", "https://news.ycombinator.com"} {
		require.NoError(t, env.store.IncrementClicksAndRecordEvent(link.ID, &model.ClickEvent{
			Referrer: strPtr(ref),
		}))
	}

	first, source, err := env.service.Analytics(ctx, link.ShortCode, 1)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, source, "第一次读取应来自数据库")
	assert.Equal(t, int64(3), first.TotalClicks)
	assert.Len(t, first.ReferrerStats, 3)

	second, source, err := env.service.Analytics(ctx, link.ShortCode, 1)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source, "第二次读取应命中缓存")
	assert.Equal(t, int64(3), second.TotalClicks)

	// 缓存快照与现算快照结构一致
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

// 快照写入缓存后没有失效钩子：TTL 窗口内允许滞后于实时计数
func TestAnalytics_SnapshotStalenessWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com/stale")
	require.NoError(t, err)
	require.NoError(t, env.store.IncrementClicksAndRecordEvent(link.ID, &model.ClickEvent{}))

	first, source, err := env.service.Analytics(ctx, link.ShortCode, 1)
	require.NoError(t, err)
	require.Equal(t, SourceDatabase, source)
	require.Equal(t, int64(1), first.TotalClicks)

	// 新点击到达，但缓存快照不失效
	require.NoError(t, env.store.IncrementClicksAndRecordEvent(link.ID, &model.ClickEvent{}))

	second, source, err := env.service.Analytics(ctx, link.ShortCode, 1)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, int64(1), second.TotalClicks, "TTL 内快照允许滞后，这是既定取舍")
}

func TestAnalytics_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link, err := env.service.Create(ctx, 1, "https://example.com")
	require.NoError(t, err)

	_, _, err = env.service.Analytics(ctx, link.ShortCode, 2)
	assert.ErrorIs(t, err, store.ErrForbidden)
}

func TestAnalytics_UnknownCode(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.service.Analytics(context.Background(), "nothere", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
