package service

import (
	"context"
	"testing"
	"time"

	"github.com/inkpost/internal/db"
)

func TestRecordPostViewCounts(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	ctx := context.Background()

	post := db.Post{Title: "统计", Content: "<p>内容</p>", Slug: "stats"}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	svc := NewAnalyticsService(gdb)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	stats, err := svc.RecordPostView(ctx, post.ID, "visitor-1", base)
	if err != nil {
		t.Fatalf("first view failed: %v", err)
	}
	if stats.PageViews != 1 || stats.UniqueVisitors != 1 {
		t.Fatalf("expected PV=1 UV=1, got PV=%d UV=%d", stats.PageViews, stats.UniqueVisitors)
	}

	stats, err = svc.RecordPostView(ctx, post.ID, "visitor-1", base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("revisit failed: %v", err)
	}
	if stats.PageViews != 2 || stats.UniqueVisitors != 1 {
		t.Fatalf("expected PV=2 UV=1 after revisit, got PV=%d UV=%d", stats.PageViews, stats.UniqueVisitors)
	}

	stats, err = svc.RecordPostView(ctx, post.ID, "visitor-2", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("second visitor failed: %v", err)
	}
	if stats.PageViews != 3 || stats.UniqueVisitors != 2 {
		t.Fatalf("expected PV=3 UV=2, got PV=%d UV=%d", stats.PageViews, stats.UniqueVisitors)
	}

	stored, err := svc.PostStats(ctx, post.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stored.PageViews != 3 {
		t.Fatalf("expected stored PV=3, got %d", stored.PageViews)
	}

	statsMap, err := svc.PostStatsMap(ctx, []string{post.ID, "missing"})
	if err != nil {
		t.Fatalf("stats map: %v", err)
	}
	if len(statsMap) != 1 || statsMap[post.ID].UniqueVisitors != 2 {
		t.Fatalf("unexpected stats map: %+v", statsMap)
	}
}

func TestRecordPostViewWithExistingStatsRow(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	ctx := context.Background()

	post := db.Post{Title: "并发", Content: "<p>内容</p>", Slug: "concurrent"}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	// 另一个请求已经写入统计行，但本访客尚无访问记录
	if err := gdb.Create(&db.PostStatistic{PostID: post.ID, PageViews: 4, UniqueVisitors: 3}).Error; err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}

	svc := NewAnalyticsService(gdb)
	stats, err := svc.RecordPostView(ctx, post.ID, "late-visitor", time.Now())
	if err != nil {
		t.Fatalf("view with existing stats row failed: %v", err)
	}
	if stats.PageViews != 5 || stats.UniqueVisitors != 4 {
		t.Fatalf("expected PV=5 UV=4, got PV=%d UV=%d", stats.PageViews, stats.UniqueVisitors)
	}

	var count int64
	if err := gdb.Model(&db.PostStatistic{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single stats row, got %d", count)
	}
}

func TestRecordPostViewRejectsEmptyIDs(t *testing.T) {
	svc := NewAnalyticsService(setupPostServiceTestDB(t))

	if _, err := svc.RecordPostView(context.Background(), "", "visitor", time.Now()); err == nil {
		t.Fatal("expected error for empty post id")
	}
	if _, err := svc.RecordPostView(context.Background(), "post", "", time.Now()); err == nil {
		t.Fatal("expected error for empty visitor id")
	}
}

func TestPostStatsWithoutViews(t *testing.T) {
	svc := NewAnalyticsService(setupPostServiceTestDB(t))

	stats, err := svc.PostStats(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PageViews != 0 || stats.PostID != "unknown" {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
