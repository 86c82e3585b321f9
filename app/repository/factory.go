package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory builds the repository bundle once per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns the shared bundle for this factory's handle.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// DB exposes the underlying handle, e.g. for health checks.
func (f *Factory) DB() *gorm.DB {
	return f.db
}
