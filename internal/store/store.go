package store

import (
	"errors"
	"time"

	"shortlink-platform/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 短链接不存在或已删除
	ErrNotFound = errors.New("短链接不存在")
	// ErrForbidden 请求者不是资源属主
	ErrForbidden = errors.New("没有操作该资源的权限")
	// ErrDuplicateCode 短码唯一索引冲突
	ErrDuplicateCode = errors.New("短码已存在")
)

// Store 持久层，ShortLink 与 ClickEvent 的唯一权威数据源
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New 创建持久层实例
func New(db *gorm.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// CreateShortLink 持久化一条短链接映射
func (s *Store) CreateShortLink(userID uint, originalURL, shortCode string) (*model.ShortLink, error) {
	link := model.ShortLink{
		UserID:      userID,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
	}
	if err := s.db.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return &link, nil
}

// FindShortLinkByCode 按短码查询存活记录
func (s *Store) FindShortLinkByCode(code string) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := s.db.Where("short_code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// FindShortLinkByID 按主键查询存活记录
func (s *Store) FindShortLinkByID(id uint) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := s.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// FindShortLinksByOwner 按属主分页查询，新建在前
func (s *Store) FindShortLinksByOwner(userID uint, limit, offset int) ([]model.ShortLink, int64, error) {
	var total int64
	if err := s.db.Model(&model.ShortLink{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []model.ShortLink
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// ShortCodeExists 检查短码是否已被占用
// Unscoped 连同软删除的行一起统计，因为唯一索引同样覆盖它们；
// 查询出错时保守地认为已存在，避免把冲突码交给调用方
func (s *Store) ShortCodeExists(code string) bool {
	var count int64
	if err := s.db.Unscoped().Model(&model.ShortLink{}).Where("short_code = ?", code).Count(&count).Error; err != nil {
		s.logger.Errorf("查询短码占用情况出错: %v", err)
		return true
	}
	return count > 0
}

// IncrementClicksAndRecordEvent 原子地累加点击数并插入访问记录
// 两个写操作在同一事务内提交，任一失败则整体回滚
func (s *Store) IncrementClicksAndRecordEvent(shortLinkID uint, event *model.ClickEvent) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ShortLink{}).
			Where("id = ?", shortLinkID).
			UpdateColumn("clicks", gorm.Expr("clicks + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		event.ShortLinkID = shortLinkID
		if event.ClickedAt.IsZero() {
			event.ClickedAt = time.Now()
		}
		return tx.Create(event).Error
	})
}

// DeleteShortLink 软删除短链接，先校验属主
// 返回被删记录，便于调用方同步清理缓存条目
func (s *Store) DeleteShortLink(id, userID uint) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := s.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if link.UserID != userID {
		return nil, ErrForbidden
	}

	if err := s.db.Delete(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ReferrerStat 按来源分组的点击数
type ReferrerStat struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// CountryStat 按国家分组的点击数
type CountryStat struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// DayStat 按自然日分组的点击数
type DayStat struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Analytics 聚合统计结果
type Analytics struct {
	TotalClicks   int64              `json:"total_clicks"`
	RawEvents     []model.ClickEvent `json:"raw_events"`
	ReferrerStats []ReferrerStat     `json:"referrer_stats"`
	CountryStats  []CountryStat      `json:"country_stats"`
	ClicksByDay   []DayStat          `json:"clicks_by_day"`
}

// AggregateAnalytics 从原始访问记录计算分组统计
// 空结果是合法的零值统计，不视为错误
func (s *Store) AggregateAnalytics(shortLinkID uint) (*Analytics, error) {
	result := &Analytics{
		RawEvents:     []model.ClickEvent{},
		ReferrerStats: []ReferrerStat{},
		CountryStats:  []CountryStat{},
		ClicksByDay:   []DayStat{},
	}

	if err := s.db.Model(&model.ClickEvent{}).
		Where("short_link_id = ?", shortLinkID).
		Count(&result.TotalClicks).Error; err != nil {
		return nil, err
	}

	if err := s.db.Where("short_link_id = ?", shortLinkID).
		Order("clicked_at DESC").
		Find(&result.RawEvents).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.ClickEvent{}).
		Select("referrer, COUNT(*) AS count").
		Where("short_link_id = ? AND referrer IS NOT NULL", shortLinkID).
		Group("referrer").
		Order("count DESC").
		Scan(&result.ReferrerStats).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.ClickEvent{}).
		Select("country, COUNT(*) AS count").
		Where("short_link_id = ? AND country IS NOT NULL", shortLinkID).
		Group("country").
		Order("count DESC").
		Scan(&result.CountryStats).Error; err != nil {
		return nil, err
	}

	// DATE() 在 MySQL 与 SQLite 下行为一致，日期分组按时间正序返回
	if err := s.db.Model(&model.ClickEvent{}).
		Select("DATE(clicked_at) AS date, COUNT(*) AS count").
		Where("short_link_id = ?", shortLinkID).
		Group("DATE(clicked_at)").
		Order("date ASC").
		Scan(&result.ClicksByDay).Error; err != nil {
		return nil, err
	}

	return result, nil
}
