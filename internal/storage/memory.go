package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryTruckStorage implements TruckStorage using an in-memory map
type MemoryTruckStorage struct {
	trucks map[string]*Truck
	mu     sync.RWMutex
}

// NewMemoryTruckStorage creates a new in-memory truck store
func NewMemoryTruckStorage() *MemoryTruckStorage {
	return &MemoryTruckStorage{
		trucks: make(map[string]*Truck),
	}
}

func (m *MemoryTruckStorage) CreateTruck(ctx context.Context, truck *Truck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.trucks[truck.ID]; exists {
		return fmt.Errorf("truck %s %w", truck.ID, ErrAlreadyExists)
	}

	if truck.CreatedAt.IsZero() {
		truck.CreatedAt = time.Now()
	}
	stored := *truck
	m.trucks[truck.ID] = &stored
	return nil
}

func (m *MemoryTruckStorage) GetTruck(ctx context.Context, truckID string) (*Truck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	truck, exists := m.trucks[truckID]
	if !exists {
		return nil, fmt.Errorf("truck %s %w", truckID, ErrNotFound)
	}

	result := *truck
	return &result, nil
}

func (m *MemoryTruckStorage) UpdateTruck(ctx context.Context, truck *Truck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.trucks[truck.ID]; !exists {
		return fmt.Errorf("truck %s %w", truck.ID, ErrNotFound)
	}

	stored := *truck
	m.trucks[truck.ID] = &stored
	return nil
}

func (m *MemoryTruckStorage) DeleteTruck(ctx context.Context, truckID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.trucks[truckID]; !exists {
		return fmt.Errorf("truck %s %w", truckID, ErrNotFound)
	}

	delete(m.trucks, truckID)
	return nil
}

func (m *MemoryTruckStorage) GetAllTrucks(ctx context.Context) ([]*Truck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Truck, 0, len(m.trucks))
	for _, truck := range m.trucks {
		t := *truck
		result = append(result, &t)
	}

	return result, nil
}

// MemoryLoadStorage implements LoadStorage using an in-memory map
type MemoryLoadStorage struct {
	loads map[string]*Load
	mu    sync.RWMutex
}

// NewMemoryLoadStorage creates a new in-memory load store
func NewMemoryLoadStorage() *MemoryLoadStorage {
	return &MemoryLoadStorage{
		loads: make(map[string]*Load),
	}
}

func (m *MemoryLoadStorage) CreateLoad(ctx context.Context, load *Load) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loads[load.ID]; exists {
		return fmt.Errorf("load %s %w", load.ID, ErrAlreadyExists)
	}

	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now()
	}
	stored := *load
	m.loads[load.ID] = &stored
	return nil
}

func (m *MemoryLoadStorage) GetLoad(ctx context.Context, loadID string) (*Load, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	load, exists := m.loads[loadID]
	if !exists {
		return nil, fmt.Errorf("load %s %w", loadID, ErrNotFound)
	}

	result := *load
	return &result, nil
}

func (m *MemoryLoadStorage) UpdateLoad(ctx context.Context, load *Load) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loads[load.ID]; !exists {
		return fmt.Errorf("load %s %w", load.ID, ErrNotFound)
	}

	stored := *load
	m.loads[load.ID] = &stored
	return nil
}

func (m *MemoryLoadStorage) GetLoadsByTruck(ctx context.Context, truckID string) ([]*Load, error) {
	return m.filter(func(l *Load) bool { return l.TruckID == truckID }), nil
}

func (m *MemoryLoadStorage) GetLoadsByStatus(ctx context.Context, status string) ([]*Load, error) {
	return m.filter(func(l *Load) bool { return l.Status == status }), nil
}

func (m *MemoryLoadStorage) GetAllLoads(ctx context.Context) ([]*Load, error) {
	return m.filter(func(*Load) bool { return true }), nil
}

func (m *MemoryLoadStorage) UpdateLoadStatus(ctx context.Context, loadID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	load, exists := m.loads[loadID]
	if !exists {
		return fmt.Errorf("load %s %w", loadID, ErrNotFound)
	}

	load.Status = status
	if status == LoadStatusDelivered {
		now := time.Now()
		load.DeliveredAt = &now
	}

	return nil
}

func (m *MemoryLoadStorage) filter(keep func(*Load) bool) []*Load {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Load{}
	for _, load := range m.loads {
		if keep(load) {
			l := *load
			result = append(result, &l)
		}
	}

	sortLoads(result)
	return result
}

// MemoryFuelStorage implements FuelStorage using an in-memory map keyed by truck
type MemoryFuelStorage struct {
	purchases map[string][]*FuelPurchase
	ids       map[string]struct{}
	mu        sync.RWMutex
}

// NewMemoryFuelStorage creates a new in-memory fuel store
func NewMemoryFuelStorage() *MemoryFuelStorage {
	return &MemoryFuelStorage{
		purchases: make(map[string][]*FuelPurchase),
		ids:       make(map[string]struct{}),
	}
}

func (m *MemoryFuelStorage) CreateFuelPurchase(ctx context.Context, purchase *FuelPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ids[purchase.ID]; exists {
		return fmt.Errorf("fuel purchase %s %w", purchase.ID, ErrAlreadyExists)
	}

	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now()
	}
	stored := *purchase
	m.ids[purchase.ID] = struct{}{}
	m.purchases[purchase.TruckID] = append(m.purchases[purchase.TruckID], &stored)
	return nil
}

func (m *MemoryFuelStorage) GetFuelPurchasesByTruck(ctx context.Context, truckID string) ([]*FuelPurchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*FuelPurchase, 0, len(m.purchases[truckID]))
	for _, purchase := range m.purchases[truckID] {
		p := *purchase
		result = append(result, &p)
	}

	sortPurchases(result)
	return result, nil
}
