package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dujiao-next/storefront/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// openTestDB 为每个测试创建独立的内存数据库
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Cart{}, &models.CartItem{}, &models.Coupon{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
