package database

import (
	"errors"
	"fmt"
	"sync"

	"siamplay/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrTenantNotFound = errors.New("tenant not found or inactive")

// Registry maps tenant codes to live database handles. The first Resolve for
// a code opens and caches a handle from the tenant's connection string; later
// calls return the cached handle. A failed open is returned to the caller and
// caches nothing, so one broken tenant cannot poison the rest.
type Registry struct {
	master *gorm.DB
	open   func(dsn string) (*gorm.DB, error)

	mu      sync.Mutex
	handles map[string]*gorm.DB
}

func NewRegistry(master *gorm.DB) *Registry {
	return &Registry{
		master: master,
		open: func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), &gorm.Config{})
		},
		handles: make(map[string]*gorm.DB),
	}
}

// NewRegistryWithOpener lets tests substitute the dialector.
func NewRegistryWithOpener(master *gorm.DB, open func(dsn string) (*gorm.DB, error)) *Registry {
	r := NewRegistry(master)
	r.open = open
	return r
}

func (r *Registry) Resolve(code string) (*gorm.DB, error) {
	r.mu.Lock()
	if db, ok := r.handles[code]; ok {
		r.mu.Unlock()
		return db, nil
	}
	r.mu.Unlock()

	var tenant models.Tenant
	err := r.master.Where("code = ? AND is_active = true", code).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, code)
		}
		return nil, err
	}

	db, err := r.open(tenant.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open tenant %s: %w", code, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have opened the same tenant while we were connecting.
	if existing, ok := r.handles[code]; ok {
		closeHandle(db)
		return existing, nil
	}
	r.handles[code] = db
	return db, nil
}

// ResolveByDomain maps a request host to a tenant and resolves its handle.
func (r *Registry) ResolveByDomain(host string) (*gorm.DB, string, error) {
	var tenant models.Tenant
	err := r.master.Where("is_active = true AND domains LIKE ?", "%"+host+"%").First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: domain %s", ErrTenantNotFound, host)
		}
		return nil, "", err
	}
	db, err := r.Resolve(tenant.Code)
	return db, tenant.Code, err
}

// Release closes and evicts one tenant handle.
func (r *Registry) Release(code string) {
	r.mu.Lock()
	db, ok := r.handles[code]
	if ok {
		delete(r.handles, code)
	}
	r.mu.Unlock()

	if ok {
		closeHandle(db)
	}
}

// ReleaseAll closes every cached handle. Used at process shutdown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*gorm.DB)
	r.mu.Unlock()

	for _, db := range handles {
		closeHandle(db)
	}
}

// Codes returns the tenant codes with a live handle, for diagnostics.
func (r *Registry) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.handles))
	for code := range r.handles {
		codes = append(codes, code)
	}
	return codes
}

func closeHandle(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
