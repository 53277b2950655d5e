package workers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"conquest-engine/models"
	"conquest-engine/utils"

	"gorm.io/gorm"
)

// BattleArchiveClient moves battle reports whose history window has expired
// out of the hot table and into R2 as JSON documents. The DB row is
// soft-deleted only after the upload succeeds, so a failed tick simply
// retries the same window next time.
type BattleArchiveClient struct {
	DB        *gorm.DB
	KeepFor   time.Duration
	BatchSize int
}

func NewBattleArchiveClient(db *gorm.DB, keepFor time.Duration) *BattleArchiveClient {
	return &BattleArchiveClient{
		DB:        db,
		KeepFor:   keepFor,
		BatchSize: 100,
	}
}

// ArchiveExpired uploads and soft-deletes one batch of expired battles.
// Returns how many were archived.
func (c *BattleArchiveClient) ArchiveExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-c.KeepFor)

	var battles []models.Battle
	err := c.DB.Where("occurred_at < ?", cutoff).
		Order("occurred_at asc").
		Limit(c.BatchSize).
		Find(&battles).Error
	if err != nil {
		return 0, err
	}

	archived := 0
	for i := range battles {
		b := &battles[i]

		raw, err := json.Marshal(b)
		if err != nil {
			log.Printf("❌ Failed to marshal battle %s for archive: %v", b.ID, err)
			continue
		}
		if err := utils.UploadJSONToR2(ctx, "battles/"+b.ID+".json", raw); err != nil {
			log.Printf("❌ Failed to archive battle %s: %v", b.ID, err)
			continue
		}

		// Soft delete; the report stays recoverable from R2.
		if err := c.DB.Delete(b).Error; err != nil {
			log.Printf("❌ Failed to soft-delete archived battle %s: %v", b.ID, err)
			continue
		}
		archived++
	}
	return archived, nil
}

// PollBattleArchives runs the archive loop until the context is cancelled.
func PollBattleArchives(ctx context.Context, client *BattleArchiveClient, pollInterval time.Duration) {
	log.Println("Starting battle archive polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Battle archive polling stopped.")
			return
		case <-ticker.C:
			archived, err := client.ArchiveExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("❌ Error archiving battles: %v", err)
				continue
			}
			if archived > 0 {
				log.Printf("✅ Archived %d battle report(s) to R2.", archived)
			}
		}
	}
}
