package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"loyalty-heist-system/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoyaltyUserSyncWorker keeps the local LoyaltyUser snapshots fresh by
// polling the Profile Service for changed users. Only profile fields are
// synced — the Points column is owned by this service and never written
// by the worker.
type LoyaltyUserSyncWorker struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewLoyaltyUserSyncWorker(db *gorm.DB) *LoyaltyUserSyncWorker {
	baseURL := os.Getenv("PROFILE_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("HEIST_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("HEIST_SERVICE_TOKEN environment variable is required for user sync")
	}

	return &LoyaltyUserSyncWorker{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *LoyaltyUserSyncWorker) fetchChangedUsers(ctx context.Context, since time.Time) ([]models.RemoteUser, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/profiles", w.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.Token)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Users []models.RemoteUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	return response.Users, nil
}

// Start polls until the context is cancelled, upserting changed profiles.
func (w *LoyaltyUserSyncWorker) Start(ctx context.Context, pollInterval time.Duration) {
	log.Println("Starting loyalty user sync worker...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("User sync worker stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			users, err := w.fetchChangedUsers(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling profiles: %v", err)
				continue
			}
			if len(users) == 0 {
				continue
			}

			rows := make([]models.LoyaltyUser, 0, len(users))
			for _, ru := range users {
				if ru.DeletedAt != nil {
					continue // upstream soft-deletes are handled by moderation, not sync
				}
				rows = append(rows, models.LoyaltyUser{
					ExternalUserID:    ru.ExternalID,
					Username:          ru.Username,
					Email:             ru.Email,
					ProfilePictureURL: ru.ProfilePictureURL,
				})
			}
			if len(rows) == 0 {
				lastSyncTime = tickTime
				continue
			}

			// Bulk upsert; the column list deliberately excludes "points"
			// so a sync can never clobber a balance mid-heist.
			if err := w.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "external_user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"username",
						"email",
						"profile_picture_url",
						"updated_at",
					}),
				},
			).Create(&rows).Error; err != nil {
				log.Printf("❌ Failed to upsert %d user(s): %v", len(rows), err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = tickTime
			log.Printf("📥 Synced %d user profile(s)", len(rows))
		}
	}
}
