package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 스키마/데이터 상태 점검 유틸리티. 배포 후 마이그레이션 확인과
// 고아 레코드 탐지에 쓴다.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	// Database connection
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Check expected tables
	tables := []string{"boards", "notes", "groups", "participants"}
	fmt.Println("📋 Tables:")
	for _, table := range tables {
		var exists bool
		query := `
			SELECT EXISTS (
				SELECT 1
				FROM information_schema.tables
				WHERE table_name = ?
			)
		`
		if err := db.Raw(query, table).Scan(&exists).Error; err != nil {
			log.Fatal("Failed to check table:", err)
		}

		var count int64
		if exists {
			db.Table(table).Count(&count)
		}
		fmt.Printf("  - %-13s exists=%-5v rows=%d\n", table, exists, count)
	}
	fmt.Println()

	// Note statistics
	type NoteStats struct {
		Total    int64
		Grouped  int64
		Archived int64
	}
	var stats NoteStats
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN group_id IS NOT NULL THEN 1 END) as grouped,
			COUNT(CASE WHEN is_archived THEN 1 END) as archived
		FROM notes
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get statistics:", err)
	}

	fmt.Println("📈 Note Statistics:")
	fmt.Printf("  - Total notes: %d\n", stats.Total)
	fmt.Printf("  - Grouped: %d\n", stats.Grouped)
	fmt.Printf("  - Archived: %d\n", stats.Archived)
	fmt.Println()

	// Orphaned grouped notes: group_id pointing at a deleted group.
	// 해체가 중간에 끊기면 생길 수 있다.
	var orphans int64
	query = `
		SELECT COUNT(*)
		FROM notes n
		WHERE n.group_id IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = n.group_id)
	`
	if err := db.Raw(query).Scan(&orphans).Error; err != nil {
		log.Fatal("Failed to check orphaned notes:", err)
	}

	if orphans > 0 {
		fmt.Printf("⚠️ Orphaned grouped notes: %d (group deleted but membership not cleared)\n", orphans)
	} else {
		fmt.Println("✅ No orphaned grouped notes")
	}
}
