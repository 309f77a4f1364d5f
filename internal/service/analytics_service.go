package service

import (
	"context"
	"errors"
	"time"

	"github.com/inkpost/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInvalidView = errors.New("invalid visitor or post id")

// AnalyticsService 负责处理文章浏览相关的统计逻辑。
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService 创建 AnalyticsService。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb}
}

// RecordPostView 记录访客对文章的浏览，并返回最新的统计数据。
// 每次调用都计入浏览量，同一访客只计一次独立访客。
func (s *AnalyticsService) RecordPostView(ctx context.Context, postID, visitorID string, now time.Time) (*db.PostStatistic, error) {
	if visitorID == "" || postID == "" {
		return nil, errInvalidView
	}

	var stats db.PostStatistic

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		visit := db.PostVisit{
			PostID:       postID,
			VisitorID:    visitorID,
			LastViewedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "visitor_id"}},
			DoNothing: true,
		}).Create(&visit)
		if insert.Error != nil {
			return insert.Error
		}

		isNewVisitor := insert.RowsAffected == 1
		if !isNewVisitor {
			if err := tx.Model(&db.PostVisit{}).
				Where("post_id = ? AND visitor_id = ?", postID, visitorID).
				Update("last_viewed_at", now).Error; err != nil {
				return err
			}
		}

		// 并发的首次浏览可能同时插入统计行，冲突时沿用已有行
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoNothing: true,
		}).Create(&db.PostStatistic{PostID: postID, LastViewedAt: now}).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"page_views":     gorm.Expr("page_views + ?", 1),
			"last_viewed_at": now,
		}
		if isNewVisitor {
			updates["unique_visitors"] = gorm.Expr("unique_visitors + ?", 1)
		}
		if err := tx.Model(&db.PostStatistic{}).Where("post_id = ?", postID).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Where("post_id = ?", postID).First(&stats).Error
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// PostStats 返回单篇文章的统计数据；尚无浏览时返回零值。
func (s *AnalyticsService) PostStats(ctx context.Context, postID string) (db.PostStatistic, error) {
	var stats db.PostStatistic
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.PostStatistic{PostID: postID}, nil
	}
	return stats, err
}

// PostStatsMap 返回指定文章的统计数据，未找到的文章不会出现在结果中。
func (s *AnalyticsService) PostStatsMap(ctx context.Context, postIDs []string) (map[string]db.PostStatistic, error) {
	result := make(map[string]db.PostStatistic, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var stats []db.PostStatistic
	if err := s.db.WithContext(ctx).Where("post_id IN ?", postIDs).Find(&stats).Error; err != nil {
		return nil, err
	}

	for _, stat := range stats {
		result[stat.PostID] = stat
	}
	return result, nil
}
