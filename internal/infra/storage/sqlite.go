package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dexflow/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists order records in SQLite
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at the given path
func NewStorage(path string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// SaveOrder creates or updates an order record
func (s *Storage) SaveOrder(o *domain.Order) error {
	if err := s.db.Save(o).Error; err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// GetOrder retrieves an order by id
func (s *Storage) GetOrder(id string) (*domain.Order, error) {
	var o domain.Order
	err := s.db.First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return &o, nil
}

// ListOrdersByStatus retrieves orders in a given status, newest first
func (s *Storage) ListOrdersByStatus(status domain.OrderStatus) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.Where("status = ?", status).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	return orders, nil
}

// DeleteOrder removes an order record. Used by operational tooling only;
// the pipeline never deletes durable records.
func (s *Storage) DeleteOrder(id string) error {
	if err := s.db.Where("id = ?", id).Delete(&domain.Order{}).Error; err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}
