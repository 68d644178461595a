package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tipchain/core/types"
)

const (
	tipSentEvent = "tipping.tip_sent"

	DefaultLimit = 20
	MaxLimit     = 200

	// volumeKeyWidth zero-pads running totals so text order is numeric order.
	volumeKeyWidth = 96
)

// Tip is one settled tip projected from a TipSent event.
type Tip struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxID         string    `gorm:"uniqueIndex;not null"`
	Tipper       string    `gorm:"index;not null"`
	Recipient    string    `gorm:"index;not null"`
	Agent        string    `gorm:"index"`
	Handle       string    `gorm:"index;not null"`
	Gross        string    `gorm:"type:text;not null"`
	Fee          string    `gorm:"type:text;not null"`
	Net          string    `gorm:"type:text;not null"`
	Message      string
	PaymentProof string
	TippedAt     time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// CreatorTotal is the running volume received under one handle. Amounts are
// decimal text summed with big.Int; SQL numeric types would round them.
type CreatorTotal struct {
	Handle    string `gorm:"primaryKey"`
	Recipient string `gorm:"index;not null"`
	Volume    string `gorm:"type:text;not null"`
	VolumeKey string `gorm:"type:text;index;not null"`
	Tips      int64  `gorm:"not null"`
	UpdatedAt time.Time
}

// TipperTotal is the running volume sent by one tipper.
type TipperTotal struct {
	Tipper    string `gorm:"primaryKey"`
	Volume    string `gorm:"type:text;not null"`
	VolumeKey string `gorm:"type:text;index;not null"`
	Tips      int64  `gorm:"not null"`
	UpdatedAt time.Time
}

// CreatorVolume is a leaderboard row for tip recipients.
type CreatorVolume struct {
	Handle    string `json:"handle"`
	Recipient string `json:"recipient"`
	Volume    string `json:"volume"`
	Tips      int64  `json:"tips"`
}

// TipperVolume is a leaderboard row for tippers.
type TipperVolume struct {
	Tipper string `json:"tipper"`
	Volume string `json:"volume"`
	Tips   int64  `json:"tips"`
}

// Indexer keeps a SQL projection of tip history for leaderboard queries.
type Indexer struct {
	db *gorm.DB
}

// Open connects to dsn. A postgres:// or postgresql:// DSN selects Postgres;
// anything else is treated as a SQLite path or URI.
func Open(dsn string) (*Indexer, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := db.AutoMigrate(&Tip{}, &CreatorTotal{}, &TipperTotal{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db}, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Name identifies the indexer in sink metrics.
func (i *Indexer) Name() string { return "indexer" }

// Append projects TipSent records and folds them into the running totals.
// Other record kinds are ignored and replays of an already indexed
// transaction are no-ops.
func (i *Indexer) Append(ctx context.Context, records []types.Record) error {
	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if rec.Type != tipSentEvent {
				continue
			}
			row := tipFromRecord(rec)
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tx_id"}}, DoNothing: true}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			gross, _ := new(big.Int).SetString(row.Gross, 10)
			if err := addCreatorVolume(tx, row.Handle, row.Recipient, gross); err != nil {
				return err
			}
			if err := addTipperVolume(tx, row.Tipper, gross); err != nil {
				return err
			}
		}
		return nil
	})
}

func tipFromRecord(rec types.Record) Tip {
	return Tip{
		ID:           uuid.New(),
		TxID:         rec.TxID,
		Tipper:       rec.Attr("tipper"),
		Recipient:    rec.Attr("recipient"),
		Agent:        rec.Attr("agent"),
		Handle:       rec.Attr("handle"),
		Gross:        amountOrZero(rec.Attr("gross")),
		Fee:          amountOrZero(rec.Attr("fee")),
		Net:          amountOrZero(rec.Attr("net")),
		Message:      rec.Attr("message"),
		PaymentProof: rec.Attr("paymentProof"),
		TippedAt:     time.Unix(rec.Timestamp, 0).UTC(),
	}
}

func addCreatorVolume(tx *gorm.DB, handle, recipient string, gross *big.Int) error {
	var total CreatorTotal
	err := tx.Where("handle = ?", handle).Take(&total).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		total = CreatorTotal{Handle: handle, Recipient: recipient, Volume: "0"}
		total.Volume, total.VolumeKey = addVolume(total.Volume, gross)
		total.Tips = 1
		return tx.Create(&total).Error
	}
	if err != nil {
		return err
	}
	total.Volume, total.VolumeKey = addVolume(total.Volume, gross)
	total.Tips++
	return tx.Save(&total).Error
}

func addTipperVolume(tx *gorm.DB, tipper string, gross *big.Int) error {
	var total TipperTotal
	err := tx.Where("tipper = ?", tipper).Take(&total).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		total = TipperTotal{Tipper: tipper, Volume: "0"}
		total.Volume, total.VolumeKey = addVolume(total.Volume, gross)
		total.Tips = 1
		return tx.Create(&total).Error
	}
	if err != nil {
		return err
	}
	total.Volume, total.VolumeKey = addVolume(total.Volume, gross)
	total.Tips++
	return tx.Save(&total).Error
}

// addVolume returns current+delta as decimal text and as its sort key.
func addVolume(current string, delta *big.Int) (string, string) {
	sum, ok := new(big.Int).SetString(current, 10)
	if !ok {
		sum = new(big.Int)
	}
	if delta != nil {
		sum.Add(sum, delta)
	}
	return sum.String(), volumeKey(sum)
}

func volumeKey(v *big.Int) string {
	digits := v.String()
	if len(digits) >= volumeKeyWidth {
		return digits
	}
	return strings.Repeat("0", volumeKeyWidth-len(digits)) + digits
}

// TopCreators ranks creators by gross volume received.
func (i *Indexer) TopCreators(ctx context.Context, limit int) ([]CreatorVolume, error) {
	var totals []CreatorTotal
	err := i.db.WithContext(ctx).
		Order("volume_key DESC").
		Order("handle ASC").
		Limit(clampLimit(limit)).
		Find(&totals).Error
	if err != nil {
		return nil, err
	}
	rows := make([]CreatorVolume, 0, len(totals))
	for _, total := range totals {
		rows = append(rows, CreatorVolume{Handle: total.Handle, Recipient: total.Recipient, Volume: total.Volume, Tips: total.Tips})
	}
	return rows, nil
}

// TopTippers ranks tippers by gross volume sent.
func (i *Indexer) TopTippers(ctx context.Context, limit int) ([]TipperVolume, error) {
	var totals []TipperTotal
	err := i.db.WithContext(ctx).
		Order("volume_key DESC").
		Order("tipper ASC").
		Limit(clampLimit(limit)).
		Find(&totals).Error
	if err != nil {
		return nil, err
	}
	rows := make([]TipperVolume, 0, len(totals))
	for _, total := range totals {
		rows = append(rows, TipperVolume{Tipper: total.Tipper, Volume: total.Volume, Tips: total.Tips})
	}
	return rows, nil
}

// TipsByCreator returns the newest tips received under handle.
func (i *Indexer) TipsByCreator(ctx context.Context, handle string, limit int) ([]Tip, error) {
	var tips []Tip
	err := i.db.WithContext(ctx).
		Where("handle = ?", handle).
		Order("tipped_at DESC").
		Limit(clampLimit(limit)).
		Find(&tips).Error
	return tips, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func amountOrZero(v string) string {
	amount, ok := new(big.Int).SetString(v, 10)
	if !ok || amount.Sign() < 0 {
		return "0"
	}
	return amount.String()
}
