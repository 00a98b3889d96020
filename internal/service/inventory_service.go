package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/repository"
	"stockroom/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultLowStockThreshold is applied when the caller supplies none
	DefaultLowStockThreshold = 5

	// DefaultHistoryLimit bounds History when the caller supplies no limit
	DefaultHistoryLimit = 50

	reportTimestampLayout = "20060102_150405"
)

// Operation records one successful mutation for the in-memory audit trail
type Operation struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	ProductID string    `json:"product_id"`
	Detail    string    `json:"detail"`
}

// Stats summarizes the current inventory
type Stats struct {
	TotalProducts  int             `json:"total_products"`
	TotalItems     int             `json:"total_items"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	MostExpensive  *domain.Product `json:"most_expensive,omitempty"`
	LeastExpensive *domain.Product `json:"least_expensive,omitempty"`
	OutOfStock     int             `json:"out_of_stock"`
	LowStock       int             `json:"low_stock"`
	Categories     int             `json:"categories"`
	Suppliers      int             `json:"suppliers"`
}

// CreateProductInput carries the fields needed to create a product
type CreateProductInput struct {
	ID        string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Category  string
	Supplier  string
}

// InventoryService defines the interface for inventory business logic
type InventoryService interface {
	AddProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	RemoveProduct(ctx context.Context, id string) error
	UpdateProduct(ctx context.Context, id string, fields repository.UpdateFields) (*domain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	SearchProducts(ctx context.Context, name string) []*domain.Product
	ProductsByCategory(ctx context.Context, category string) []*domain.Product
	ListProducts(ctx context.Context) []*domain.Product
	LowStock(ctx context.Context, threshold int) []*domain.Product
	Stats(ctx context.Context) Stats
	History(ctx context.Context, limit int) []Operation
	ExportReport(ctx context.Context) (string, error)
	Reload(ctx context.Context) error
}

type inventoryService struct {
	repo         repository.ProductRepository
	reportDir    string
	lowStockMark int
	logger       *zap.Logger

	mu      sync.Mutex
	history []Operation
}

// NewInventoryService creates a new instance of InventoryService. A
// non-positive lowStockThreshold falls back to DefaultLowStockThreshold.
func NewInventoryService(repo repository.ProductRepository, reportDir string, lowStockThreshold int, logger *zap.Logger) InventoryService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &inventoryService{
		repo:         repo,
		reportDir:    reportDir,
		lowStockMark: lowStockThreshold,
		logger:       logger,
	}
}

// AddProduct builds a validated product and inserts it into the inventory
func (s *inventoryService) AddProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(input.ID, input.Name, input.Quantity, input.UnitPrice)
	if err != nil {
		return nil, err
	}
	product.Category = input.Category
	product.Supplier = input.Supplier

	if err := s.repo.Add(product); err != nil {
		return nil, err
	}

	s.record("add", product.ID, fmt.Sprintf("product %q added", product.Name))
	s.logger.Info("Product added",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
	)
	return product, nil
}

// RemoveProduct deletes a product from the inventory
func (s *inventoryService) RemoveProduct(ctx context.Context, id string) error {
	if err := s.repo.Remove(id); err != nil {
		return err
	}

	s.record("remove", id, "product removed")
	s.logger.Info("Product removed", zap.String("product_id", id))
	return nil
}

// UpdateProduct applies a partial update to a product
func (s *inventoryService) UpdateProduct(ctx context.Context, id string, fields repository.UpdateFields) (*domain.Product, error) {
	updated, err := s.repo.Update(id, fields)
	if err != nil {
		return nil, err
	}

	s.record("update", id, describeUpdate(fields))
	s.logger.Info("Product updated", zap.String("product_id", id))
	return updated, nil
}

// AdjustStock applies a signed stock movement to a product
func (s *inventoryService) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	updated, err := s.repo.AdjustStock(id, delta)
	if err != nil {
		return nil, err
	}

	s.record("adjust_stock", id, fmt.Sprintf("stock adjusted by %+d to %d", delta, updated.Quantity))
	s.logger.Info("Stock adjusted",
		zap.String("product_id", id),
		zap.Int("delta", delta),
		zap.Int("quantity", updated.Quantity),
	)
	return updated, nil
}

// GetProduct returns a product by id
func (s *inventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(id)
}

// SearchProducts returns products whose name contains the given text
func (s *inventoryService) SearchProducts(ctx context.Context, name string) []*domain.Product {
	return s.repo.SearchByName(name)
}

// ProductsByCategory returns products in the given category
func (s *inventoryService) ProductsByCategory(ctx context.Context, category string) []*domain.Product {
	return s.repo.FilterByCategory(category)
}

// ListProducts returns all products in insertion order
func (s *inventoryService) ListProducts(ctx context.Context) []*domain.Product {
	return s.repo.List()
}

// LowStock returns products at or below the threshold; a non-positive
// threshold falls back to the configured default
func (s *inventoryService) LowStock(ctx context.Context, threshold int) []*domain.Product {
	if threshold <= 0 {
		threshold = s.lowStockMark
	}
	return s.repo.LowStock(threshold)
}

// Stats computes summary figures over the current inventory
func (s *inventoryService) Stats(ctx context.Context) Stats {
	products := s.repo.List()

	stats := Stats{
		TotalProducts:  len(products),
		InventoryValue: decimal.Zero,
		Categories:     len(s.repo.Categories()),
		Suppliers:      len(s.repo.Suppliers()),
	}

	for _, p := range products {
		stats.TotalItems += p.Quantity
		stats.InventoryValue = stats.InventoryValue.Add(p.TotalValue())

		if !p.InStock() {
			stats.OutOfStock++
		}
		if p.Quantity <= s.lowStockMark {
			stats.LowStock++
		}
		if stats.MostExpensive == nil || p.UnitPrice.GreaterThan(stats.MostExpensive.UnitPrice) {
			stats.MostExpensive = p
		}
		if stats.LeastExpensive == nil || p.UnitPrice.LessThan(stats.LeastExpensive.UnitPrice) {
			stats.LeastExpensive = p
		}
	}

	return stats
}

// History returns the most recent operations, newest first
func (s *inventoryService) History(ctx context.Context, limit int) []Operation {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	if limit > n {
		limit = n
	}

	out := make([]Operation, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// ExportReport writes a timestamped plain-text inventory report and returns
// its path
func (s *inventoryService) ExportReport(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.reportDir, 0o755); err != nil {
		return "", &storage.PersistenceError{Op: "report", Path: s.reportDir, Err: err}
	}

	path := filepath.Join(s.reportDir,
		fmt.Sprintf("inventory_report_%s.txt", time.Now().Format(reportTimestampLayout)))

	products := s.repo.List()
	stats := s.Stats(ctx)

	var b []byte
	b = appendLine(b, "INVENTORY REPORT")
	b = appendLine(b, "Generated: "+time.Now().UTC().Format(time.RFC3339))
	b = appendLine(b, "")
	b = appendLine(b, fmt.Sprintf("Products: %d", stats.TotalProducts))
	b = appendLine(b, "")

	for i, p := range products {
		b = appendLine(b, fmt.Sprintf("%3d. %s  %s  qty=%d  price=%s  created=%s",
			i+1, p.ID, p.Name, p.Quantity, p.UnitPrice.StringFixed(2),
			p.CreatedAt.Format(time.RFC3339)))
	}

	b = appendLine(b, "")
	b = appendLine(b, fmt.Sprintf("Total items: %d", stats.TotalItems))
	b = appendLine(b, fmt.Sprintf("Inventory value: %s", stats.InventoryValue.StringFixed(2)))
	b = appendLine(b, fmt.Sprintf("Out of stock: %d", stats.OutOfStock))
	b = appendLine(b, fmt.Sprintf("Low stock (<=%d): %d", s.lowStockMark, stats.LowStock))

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", &storage.PersistenceError{Op: "report", Path: path, Err: err}
	}

	s.record("report", "", "report exported to "+path)
	s.logger.Info("Report exported", zap.String("path", path))
	return path, nil
}

// Reload re-reads the backing file, replacing in-memory state
func (s *inventoryService) Reload(ctx context.Context) error {
	if err := s.repo.Reload(); err != nil {
		return err
	}

	s.record("reload", "", fmt.Sprintf("inventory reloaded, %d products", s.repo.Len()))
	s.logger.Info("Inventory reloaded", zap.Int("products", s.repo.Len()))
	return nil
}

func (s *inventoryService) record(kind, productID, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Operation{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		ProductID: productID,
		Detail:    detail,
	})
}

func describeUpdate(fields repository.UpdateFields) string {
	detail := "updated:"
	if fields.Name != nil {
		detail += fmt.Sprintf(" name=%q", *fields.Name)
	}
	if fields.Quantity != nil {
		detail += fmt.Sprintf(" quantity=%d", *fields.Quantity)
	}
	if fields.UnitPrice != nil {
		detail += fmt.Sprintf(" unit_price=%s", fields.UnitPrice.StringFixed(2))
	}
	if fields.Category != nil {
		detail += fmt.Sprintf(" category=%q", *fields.Category)
	}
	if fields.Supplier != nil {
		detail += fmt.Sprintf(" supplier=%q", *fields.Supplier)
	}
	return detail
}

func appendLine(b []byte, line string) []byte {
	return append(b, (line + "\n")...)
}
