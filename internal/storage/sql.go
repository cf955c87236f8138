package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLStorage implements TruckStorage, LoadStorage and FuelStorage with gorm
type SQLStorage struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL and migrates the schema
func OpenPostgres(databaseURL string) (*SQLStorage, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewSQLStorage(db)
}

// OpenSQLite opens a SQLite database file (or ":memory:") and migrates the schema
func OpenSQLite(path string) (*SQLStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Each connection to :memory: is a separate database
	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewSQLStorage(db)
}

// NewSQLStorage wraps an open gorm connection and migrates the schema
func NewSQLStorage(db *gorm.DB) (*SQLStorage, error) {
	if err := db.AutoMigrate(&Truck{}, &Load{}, &FuelPurchase{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// Close releases the underlying connection pool
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func createError(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s %s %w", kind, id, ErrAlreadyExists)
	}
	return fmt.Errorf("failed to create %s: %w", kind, err)
}

func getError(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

func (s *SQLStorage) replace(ctx context.Context, kind, id string, record interface{}) error {
	result := s.db.WithContext(ctx).Model(record).Select("*").Updates(record)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s %w", kind, id, ErrNotFound)
	}
	return nil
}

func (s *SQLStorage) CreateTruck(ctx context.Context, truck *Truck) error {
	if err := s.db.WithContext(ctx).Create(truck).Error; err != nil {
		return createError("truck", truck.ID, err)
	}
	return nil
}

func (s *SQLStorage) GetTruck(ctx context.Context, truckID string) (*Truck, error) {
	var truck Truck
	if err := s.db.WithContext(ctx).First(&truck, "id = ?", truckID).Error; err != nil {
		return nil, getError("truck", truckID, err)
	}
	return &truck, nil
}

func (s *SQLStorage) UpdateTruck(ctx context.Context, truck *Truck) error {
	return s.replace(ctx, "truck", truck.ID, truck)
}

func (s *SQLStorage) DeleteTruck(ctx context.Context, truckID string) error {
	result := s.db.WithContext(ctx).Delete(&Truck{}, "id = ?", truckID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete truck: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("truck %s %w", truckID, ErrNotFound)
	}
	return nil
}

func (s *SQLStorage) GetAllTrucks(ctx context.Context) ([]*Truck, error) {
	var trucks []*Truck
	if err := s.db.WithContext(ctx).Order("unit_number, id").Find(&trucks).Error; err != nil {
		return nil, fmt.Errorf("failed to list trucks: %w", err)
	}
	return trucks, nil
}

func (s *SQLStorage) CreateLoad(ctx context.Context, load *Load) error {
	if err := s.db.WithContext(ctx).Create(load).Error; err != nil {
		return createError("load", load.ID, err)
	}
	return nil
}

func (s *SQLStorage) GetLoad(ctx context.Context, loadID string) (*Load, error) {
	var load Load
	if err := s.db.WithContext(ctx).First(&load, "id = ?", loadID).Error; err != nil {
		return nil, getError("load", loadID, err)
	}
	return &load, nil
}

func (s *SQLStorage) UpdateLoad(ctx context.Context, load *Load) error {
	return s.replace(ctx, "load", load.ID, load)
}

func (s *SQLStorage) GetLoadsByTruck(ctx context.Context, truckID string) ([]*Load, error) {
	return s.findLoads(ctx, "truck_id = ?", truckID)
}

func (s *SQLStorage) GetLoadsByStatus(ctx context.Context, status string) ([]*Load, error) {
	return s.findLoads(ctx, "status = ?", status)
}

func (s *SQLStorage) GetAllLoads(ctx context.Context) ([]*Load, error) {
	return s.findLoads(ctx, "1 = 1")
}

func (s *SQLStorage) UpdateLoadStatus(ctx context.Context, loadID, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == LoadStatusDelivered {
		updates["delivered_at"] = time.Now()
	}

	result := s.db.WithContext(ctx).Model(&Load{}).Where("id = ?", loadID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update load status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("load %s %w", loadID, ErrNotFound)
	}
	return nil
}

func (s *SQLStorage) findLoads(ctx context.Context, query string, args ...interface{}) ([]*Load, error) {
	loads := []*Load{}
	err := s.db.WithContext(ctx).Where(query, args...).Order("created_at, id").Find(&loads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	return loads, nil
}

func (s *SQLStorage) CreateFuelPurchase(ctx context.Context, purchase *FuelPurchase) error {
	if err := s.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return createError("fuel purchase", purchase.ID, err)
	}
	return nil
}

func (s *SQLStorage) GetFuelPurchasesByTruck(ctx context.Context, truckID string) ([]*FuelPurchase, error) {
	purchases := []*FuelPurchase{}
	err := s.db.WithContext(ctx).Where("truck_id = ?", truckID).Order("purchased_at, id").Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel purchases: %w", err)
	}
	return purchases, nil
}
