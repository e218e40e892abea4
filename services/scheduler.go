// services/scheduler.go
package services

import (
	"encoding/json"
	"fmt"
	"time"

	"loyalty-heist-system/models"
	"loyalty-heist-system/utils"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StartItemSweepScheduler deactivates expired owned items every hour.
func (s *ItemService) StartItemSweepScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			swept, err := s.SweepExpired()
			if err != nil {
				log.Printf("[Scheduler] item sweep error: %v", err)
				return
			}
			if swept > 0 {
				log.Printf("🧹 Deactivated %d expired item(s)", swept)
			}
		}),
	)
}

// StartHeistArchiveScheduler exports the previous day's outcome records to
// R2 shortly after midnight. The archive feeds offline analytics; the live
// table stays append-only and unpruned.
func StartHeistArchiveScheduler(db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 15, 0))),
		gocron.NewTask(func() {
			if err := ArchiveHeistDay(db, time.Now().AddDate(0, 0, -1)); err != nil {
				log.Printf("[Scheduler] heist archive error: %v", err)
			}
		}),
	)
}

// ArchiveHeistDay uploads one calendar day of heist records as JSON to R2
// under heists/YYYY-MM-DD.json.
func ArchiveHeistDay(db *gorm.DB, day time.Time) error {
	from := localMidnight(day)
	to := from.AddDate(0, 0, 1)

	var heists []models.Heist
	err := db.Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&heists).Error
	if err != nil {
		return fmt.Errorf("failed to load heists for archive: %w", err)
	}
	if len(heists) == 0 {
		return nil
	}

	body, err := json.Marshal(heists)
	if err != nil {
		return fmt.Errorf("failed to marshal heist archive: %w", err)
	}

	key := fmt.Sprintf("heists/%s.json", from.Format("2006-01-02"))
	url, err := utils.UploadBytesToR2(key, body, "application/json")
	if err != nil {
		return err
	}
	successes := 0
	for i := range heists {
		if heists[i].Succeeded() {
			successes++
		}
	}
	log.Printf("📦 Archived %d heist(s) (%d successful) → %s", len(heists), successes, url)
	return nil
}
