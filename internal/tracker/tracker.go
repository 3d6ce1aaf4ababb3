package tracker

import (
	"sync"
	"time"

	"shortlink-platform/internal/model"
	"shortlink-platform/internal/store"

	"go.uber.org/zap"
)

// ClickMeta 一次访问携带的请求元信息
type ClickMeta struct {
	Referrer  *string
	UserAgent *string
	IPAddress *string
}

type clickJob struct {
	shortLinkID uint
	meta        ClickMeta
	clickedAt   time.Time
}

// Tracker 点击追踪器
// 追踪任务经缓冲通道分发给后台 worker，提交方从不等待结果；
// 记录失败只写日志，绝不影响重定向响应
type Tracker struct {
	store   *store.Store
	jobs    chan clickJob
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	logger  *zap.SugaredLogger
}

// New 创建点击追踪器
func New(s *store.Store, workers, queueSize int, logger *zap.SugaredLogger) *Tracker {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Tracker{
		store:   s,
		jobs:    make(chan clickJob, queueSize),
		workers: workers,
		logger:  logger.Named("tracker"),
	}
}

// Start 启动后台 worker
func (t *Tracker) Start() {
	t.logger.Infof("启动 %d 个点击追踪 worker...", t.workers)
	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}
}

// Stop 停止追踪器并排空队列中剩余的任务
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.jobs)
	t.mu.Unlock()

	t.logger.Info("正在停止点击追踪器...")
	t.wg.Wait()
}

// Track 提交一次点击，不阻塞调用方
// 队列已满或追踪器已停止时丢弃并记日志
func (t *Tracker) Track(shortLinkID uint, meta ClickMeta) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stopped {
		t.logger.Warnf("追踪器已停止，丢弃短链接 %d 的点击", shortLinkID)
		return
	}
	job := clickJob{shortLinkID: shortLinkID, meta: meta, clickedAt: time.Now()}
	select {
	case t.jobs <- job:
	default:
		t.logger.Warnf("追踪队列已满，丢弃短链接 %d 的点击", shortLinkID)
	}
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for job := range t.jobs {
		event := &model.ClickEvent{
			Referrer:  job.meta.Referrer,
			UserAgent: job.meta.UserAgent,
			IPAddress: job.meta.IPAddress,
			// country/city 预留字段，当前不做地理解析
			Country:   nil,
			City:      nil,
			ClickedAt: job.clickedAt,
		}
		if err := t.store.IncrementClicksAndRecordEvent(job.shortLinkID, event); err != nil {
			t.logger.Errorf("点击记录失败 short_link_id=%d: %v", job.shortLinkID, err)
		}
	}
}
