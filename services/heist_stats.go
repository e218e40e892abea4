package services

import (
	"fmt"

	"loyalty-heist-system/models"

	"gorm.io/gorm"
)

// HeistStatsService is the read-only side of the engine: paginated history
// and aggregate win/loss summaries over the immutable heists table.
type HeistStatsService struct {
	DB *gorm.DB
}

func NewHeistStatsService(db *gorm.DB) *HeistStatsService {
	return &HeistStatsService{DB: db}
}

// HistoryFilter narrows a history page. Role is "attacker", "victim" or
// empty for both; Status filters on the terminal outcome.
type HistoryFilter struct {
	Role   string
	Status string
	Limit  int
	Offset int
}

// normalize clamps paging to sane bounds.
func (f *HistoryFilter) normalize() {
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// History returns a page of the user's past heists plus the total count.
func (s *HeistStatsService) History(userID string, filter HistoryFilter) ([]models.Heist, int64, error) {
	filter.normalize()

	q := s.DB.Model(&models.Heist{})
	switch filter.Role {
	case "attacker":
		q = q.Where("attacker_id = ?", userID)
	case "victim":
		q = q.Where("victim_id = ?", userID)
	default:
		q = q.Where("attacker_id = ? OR victim_id = ?", userID, userID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count heist history: %w", err)
	}

	var heists []models.Heist
	err := q.Order("created_at DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&heists).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load heist history: %w", err)
	}
	return heists, total, nil
}

// HeistStats is the aggregate summary shown on a user's heist profile.
type HeistStats struct {
	TotalAttacks      int64 `json:"total_attacks"`
	SuccessfulAttacks int64 `json:"successful_attacks"`
	FailedAttacks     int64 `json:"failed_attacks"`
	TimesTargeted     int64 `json:"times_targeted"`
	TimesRobbed       int64 `json:"times_robbed"`
	PointsStolen      int64 `json:"points_stolen"`
	PointsLost        int64 `json:"points_lost"`
}

// Stats computes the summary in one aggregate query.
func (s *HeistStatsService) Stats(userID string) (*HeistStats, error) {
	var stats HeistStats
	err := s.DB.Raw(`
		SELECT
			COUNT(*) FILTER (WHERE attacker_id = @uid)                              AS total_attacks,
			COUNT(*) FILTER (WHERE attacker_id = @uid AND status = @ok)             AS successful_attacks,
			COUNT(*) FILTER (WHERE attacker_id = @uid AND status <> @ok)            AS failed_attacks,
			COUNT(*) FILTER (WHERE victim_id = @uid)                                AS times_targeted,
			COUNT(*) FILTER (WHERE victim_id = @uid AND status = @ok)               AS times_robbed,
			COALESCE(SUM(points_stolen) FILTER (WHERE attacker_id = @uid AND status = @ok), 0) AS points_stolen,
			COALESCE(SUM(points_stolen) FILTER (WHERE victim_id = @uid AND status = @ok), 0)   AS points_lost
		FROM heists
		WHERE attacker_id = @uid OR victim_id = @uid
	`, map[string]interface{}{"uid": userID, "ok": models.HeistStatusSuccess}).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute heist stats: %w", err)
	}
	return &stats, nil
}
