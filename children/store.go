// Package children 管理儿童档案和会话历史的持久化层
// 使用纯 Go 的 sqlite 驱动，不依赖 cgo，适合在玩具基站上运行
package children

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nourhashem/teddyd/session"
	"github.com/nourhashem/teddyd/types"
)

// Store 儿童档案仓库
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开 sqlite 数据库并完成迁移
// path 为 ":memory:" 时使用内存数据库（测试用）
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return NewStore(db, logger)
}

// NewStore 在已有连接上创建仓库并自动迁移表结构
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Child{}, &SessionRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "children_store")),
	}, nil
}

// Ping 检查底层数据库连接，供就绪探针使用
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateChild 创建儿童档案，ID 自动生成
func (s *Store) CreateChild(ctx context.Context, child *Child) error {
	if child.Name == "" {
		return types.NewError(types.ErrInvalidRequest, "child name is required").WithHTTPStatus(400)
	}
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	if child.Language == "" {
		child.Language = "en"
	}

	if err := s.db.WithContext(ctx).Create(child).Error; err != nil {
		return types.NewError(types.ErrStoreFailure, "create child profile").WithCause(err)
	}
	s.logger.Info("child profile created",
		zap.String("child_id", child.ID),
		zap.String("device_id", child.DeviceID),
	)
	return nil
}

// GetChild 按 ID 查询儿童档案
func (s *Store) GetChild(ctx context.Context, id string) (*Child, error) {
	var child Child
	err := s.db.WithContext(ctx).First(&child, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrChildNotFound, fmt.Sprintf("child %s not found", id)).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "query child profile").WithCause(err)
	}
	return &child, nil
}

// GetChildByDevice 按设备 ID 查询儿童档案
func (s *Store) GetChildByDevice(ctx context.Context, deviceID string) (*Child, error) {
	var child Child
	err := s.db.WithContext(ctx).First(&child, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrChildNotFound, fmt.Sprintf("no child bound to device %s", deviceID)).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "query child profile").WithCause(err)
	}
	return &child, nil
}

// ListChildren 列出全部儿童档案
func (s *Store) ListChildren(ctx context.Context) ([]Child, error) {
	var out []Child
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "list child profiles").WithCause(err)
	}
	return out, nil
}

// UpdateChild 更新儿童档案
func (s *Store) UpdateChild(ctx context.Context, child *Child) error {
	if _, err := s.GetChild(ctx, child.ID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(child).Error; err != nil {
		return types.NewError(types.ErrStoreFailure, "update child profile").WithCause(err)
	}
	return nil
}

// DeleteChild 删除儿童档案及其会话历史
func (s *Store) DeleteChild(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Child{}, "id = ?", id)
	if res.Error != nil {
		return types.NewError(types.ErrStoreFailure, "delete child profile").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrChildNotFound, fmt.Sprintf("child %s not found", id)).WithHTTPStatus(404)
	}
	if err := s.db.WithContext(ctx).Delete(&SessionRecord{}, "child_id = ?", id).Error; err != nil {
		s.logger.Warn("failed to delete session history",
			zap.String("child_id", id),
			zap.Error(err),
		)
	}
	return nil
}

// PersistSession 实现 session.Persister，结束的会话落库为历史记录
func (s *Store) PersistSession(ctx context.Context, sess *session.Session) error {
	record := SessionRecord{
		SessionID:      sess.ID,
		ChildID:        sess.SubjectID,
		Kind:           string(sess.Kind),
		StartedAt:      sess.StartedAt,
		RecordingCount: sess.RecordingCount,
		TotalDuration:  sess.TotalDuration,
		TimedOut:       sess.Metadata["ended_by"] == "timeout",
	}
	if sess.EndedAt != nil {
		record.EndedAt = *sess.EndedAt
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("persist session %s: %w", sess.ID, err)
	}
	return nil
}

// SessionHistory 查询某个孩子最近的会话记录
func (s *Store) SessionHistory(ctx context.Context, childID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []SessionRecord
	err := s.db.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "query session history").WithCause(err)
	}
	return out, nil
}

// dashboardRow 聚合查询的扫描行
// MAX() 表达式在 sqlite 中丢失列的声明类型，驱动只能返回 TEXT，
// 所以时间戳先按字符串取出，再在 Go 侧解析
type dashboardRow struct {
	ChildID       string
	Name          string
	SessionCount  int64
	TotalDuration int64
	LastSessionAt sql.NullString
	CreatedAt     time.Time
}

// DashboardSummary 家长仪表盘聚合：每个孩子的会话次数、累计时长、最近活动
// 没有会话记录的孩子以档案创建时间作为最近活动
func (s *Store) DashboardSummary(ctx context.Context) ([]ChildSummary, error) {
	var rows []dashboardRow
	err := s.db.WithContext(ctx).
		Model(&Child{}).
		Select(`children.id AS child_id,
			children.name AS name,
			children.created_at AS created_at,
			COUNT(session_records.id) AS session_count,
			COALESCE(SUM(session_records.total_duration), 0) AS total_duration,
			MAX(session_records.ended_at) AS last_session_at`).
		Joins("LEFT JOIN session_records ON session_records.child_id = children.id").
		Group("children.id").
		Order("children.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "dashboard aggregation").WithCause(err)
	}

	out := make([]ChildSummary, 0, len(rows))
	for _, r := range rows {
		last := r.CreatedAt
		if r.LastSessionAt.Valid {
			if t, ok := parseStoredTime(r.LastSessionAt.String); ok {
				last = t
			}
		}
		out = append(out, ChildSummary{
			ChildID:       r.ChildID,
			Name:          r.Name,
			SessionCount:  r.SessionCount,
			TotalDuration: time.Duration(r.TotalDuration),
			LastSessionAt: last,
		})
	}
	return out, nil
}

// storedTimeLayouts sqlite TEXT 时间戳的常见写法，按出现频率排列
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseStoredTime(s string) (time.Time, bool) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
