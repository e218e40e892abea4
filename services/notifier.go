package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"loyalty-heist-system/models"
	"loyalty-heist-system/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointLedger is the platform's point-credit/read entry point. Loyalty
// points live on the shared LoyaltyUser row, so the default implementation
// is DB-backed; every method takes an explicit db handle so credits ride
// the heist transaction.
type PointLedger interface {
	ReadBalance(db *gorm.DB, userID string) (int64, bool, error)
	ReadBalanceForUpdate(db *gorm.DB, userID string) (*models.LoyaltyUser, error)
	CreditPoints(db *gorm.DB, userID string, delta int64) error
}

// DBPointLedger mutates the loyalty_users.points column directly.
type DBPointLedger struct{}

func (DBPointLedger) ReadBalance(db *gorm.DB, userID string) (int64, bool, error) {
	var user models.LoyaltyUser
	err := db.Where("external_user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}
	return user.Points, true, nil
}

func (DBPointLedger) ReadBalanceForUpdate(db *gorm.DB, userID string) (*models.LoyaltyUser, error) {
	var user models.LoyaltyUser
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (DBPointLedger) CreditPoints(db *gorm.DB, userID string, delta int64) error {
	res := db.Model(&models.LoyaltyUser{}).
		Where("external_user_id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to credit points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no account row for user %s", userID)
	}
	return nil
}

// HeistNotifier dispatches push notifications after a committed heist.
// Fire-and-forget: implementations must never affect the transfer outcome.
type HeistNotifier interface {
	NotifyAttackSuccess(ctx context.Context, attackerID, victimID, victimName string, amount int64, heistID string)
	NotifyVictim(ctx context.Context, victimID, attackerID, attackerName string, amount int64, heistID string)
}

// PointEventSink feeds the platform's loyalty/achievement bookkeeping with
// audit point-events. Best-effort, invoked after commit.
type PointEventSink interface {
	Record(ctx context.Context, userID string, delta int64, reason, heistID string) error
}

// CoinLedger debits platform coins for item purchases (wallet service).
type CoinLedger interface {
	DebitCoins(ctx context.Context, userID string, amount int64, reason string) error
}

// HTTPNotifier posts heist notifications to the Notification Service via
// the gateway mesh.
type HTTPNotifier struct {
	BaseURL string
	Token   string
}

func NewHTTPNotifier() *HTTPNotifier {
	baseURL := os.Getenv("NOTIFICATION_SERVICE_URL")
	if baseURL == "" {
		log.Println("⚠️  NOTIFICATION_SERVICE_URL not set — heist notifications will be dropped")
	}
	return &HTTPNotifier{
		BaseURL: baseURL,
		Token:   os.Getenv("HEIST_SERVICE_TOKEN"),
	}
}

func (n *HTTPNotifier) NotifyAttackSuccess(ctx context.Context, attackerID, victimID, victimName string, amount int64, heistID string) {
	n.post(ctx, "/api/v1/internal/notify/heist-success", map[string]interface{}{
		"user_id":     attackerID,
		"victim_id":   victimID,
		"victim_name": victimName,
		"amount":      amount,
		"heist_id":    heistID,
	})
}

func (n *HTTPNotifier) NotifyVictim(ctx context.Context, victimID, attackerID, attackerName string, amount int64, heistID string) {
	n.post(ctx, "/api/v1/internal/notify/heist-victim", map[string]interface{}{
		"user_id":       victimID,
		"attacker_id":   attackerID,
		"attacker_name": attackerName,
		"amount":        amount,
		"heist_id":      heistID,
	})
}

func (n *HTTPNotifier) post(ctx context.Context, path string, payload map[string]interface{}) {
	if n.BaseURL == "" {
		return
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", n.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		log.Printf("❌ [NOTIFY] failed to build request for %s: %v", path, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", n.Token)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		log.Printf("❌ [NOTIFY] %s failed: %v", path, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("❌ [NOTIFY] %s returned status %d", path, resp.StatusCode)
	}
}

// HTTPPointEventSink forwards audit point-events to the Loyalty Service.
type HTTPPointEventSink struct {
	BaseURL string
	Token   string
}

func NewHTTPPointEventSink() *HTTPPointEventSink {
	return &HTTPPointEventSink{
		BaseURL: os.Getenv("LOYALTY_SERVICE_URL"),
		Token:   os.Getenv("HEIST_SERVICE_TOKEN"),
	}
}

func (s *HTTPPointEventSink) Record(ctx context.Context, userID string, delta int64, reason, heistID string) error {
	if s.BaseURL == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]interface{}{
		"user_id":  userID,
		"delta":    delta,
		"reason":   reason,
		"heist_id": heistID,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/api/v1/internal/point-events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", s.Token)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("point-event sink returned status %d", resp.StatusCode)
	}
	return nil
}

// HTTPCoinLedger debits coins through the Wallet Service.
type HTTPCoinLedger struct {
	BaseURL string
	Token   string
}

func NewHTTPCoinLedger() *HTTPCoinLedger {
	return &HTTPCoinLedger{
		BaseURL: os.Getenv("WALLET_SERVICE_URL"),
		Token:   os.Getenv("HEIST_SERVICE_TOKEN"),
	}
}

// ErrInsufficientCoins is returned when the wallet service rejects a debit.
var ErrInsufficientCoins = errors.New("insufficient coins")

func (l *HTTPCoinLedger) DebitCoins(ctx context.Context, userID string, amount int64, reason string) error {
	if l.BaseURL == "" {
		return fmt.Errorf("WALLET_SERVICE_URL not configured")
	}
	body, _ := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"amount":  amount,
		"reason":  reason,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", l.BaseURL+"/api/v1/internal/coins/debit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", l.Token)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet service unreachable: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusConflict:
		return ErrInsufficientCoins
	case resp.StatusCode >= 300:
		return fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}
	return nil
}
