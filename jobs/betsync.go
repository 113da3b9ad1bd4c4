package jobs

import (
	"context"
	"log"
	"time"

	"siamplay/database"
	"siamplay/models"
	"siamplay/services"

	"gorm.io/gorm"
)

// StartSyncScheduler drives the bet settlement sync: every interval, each
// active tenant gets a pass over each of its agents. Tenants run in parallel;
// overlapping passes for the same agent are skipped by the sync service's
// single-flight locks.
func StartSyncScheduler(ctx context.Context, master *gorm.DB, registry *database.Registry, svc *services.SyncService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, master, registry, svc)
			}
		}
	}()
}

func runOnce(ctx context.Context, master *gorm.DB, registry *database.Registry, svc *services.SyncService) {
	var tenants []models.Tenant
	if err := master.Where("is_active = true").Find(&tenants).Error; err != nil {
		log.Printf("[Sync] list tenants: %v", err)
		return
	}

	for _, tenant := range tenants {
		go func(t models.Tenant) {
			db, err := registry.Resolve(t.Code)
			if err != nil {
				log.Printf("[Sync] %s: %v", t.Code, err)
				return
			}
			svc.SyncTenant(ctx, db, t.Code)
		}(tenant)
	}
}
