package repository

import (
	"errors"
	"strings"
	"sync"

	"stockroom/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateID     = errors.New("product with this id already exists")
)

// ProductStore is the persistence boundary the repository saves through
type ProductStore interface {
	Load() ([]domain.Product, error)
	Save(products []domain.Product) error
	BackupCorrupt() (string, error)
	Path() string
}

// UpdateFields carries a partial update; nil fields are left unchanged
type UpdateFields struct {
	Name      *string
	Quantity  *int
	UnitPrice *decimal.Decimal
	Category  *string
	Supplier  *string
}

// ProductRepository defines the interface for inventory data access.
// Every mutation persists the full inventory through the ProductStore; if
// persisting fails, the in-memory change is rolled back so observable state
// always matches what was durably saved.
type ProductRepository interface {
	Add(product *domain.Product) error
	Remove(id string) error
	Update(id string, fields UpdateFields) (*domain.Product, error)
	AdjustStock(id string, delta int) (*domain.Product, error)
	FindByID(id string) (*domain.Product, error)
	SearchByName(text string) []*domain.Product
	FilterByCategory(category string) []*domain.Product
	LowStock(threshold int) []*domain.Product
	List() []*domain.Product
	Categories() []string
	Suppliers() []string
	Len() int
	Reload() error
	ResetCorrupt() (string, error)
}

type inventoryRepository struct {
	mu       sync.RWMutex
	store    ProductStore
	logger   *zap.Logger
	products []domain.Product // insertion order
	index    map[string]int   // id -> position in products
}

// Open creates a repository bound to the given store and loads the backing
// file. An absent or empty file yields an empty repository. On a corrupt
// file the repository is returned empty alongside the error so the caller
// can decide between ResetCorrupt and aborting.
func Open(store ProductStore, logger *zap.Logger) (ProductRepository, error) {
	r := &inventoryRepository{
		store:  store,
		logger: logger,
		index:  make(map[string]int),
	}

	products, err := store.Load()
	if err != nil {
		return r, err
	}

	r.replace(products)
	logger.Info("Inventory loaded",
		zap.String("path", store.Path()),
		zap.Int("products", len(products)),
	)
	return r, nil
}

// Add inserts a new product and persists. Fails with ErrDuplicateID if the
// id is already present, or a ValidationError if a field is out of bounds.
func (r *inventoryRepository) Add(product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[product.ID]; exists {
		return ErrDuplicateID
	}
	if err := product.Validate(); err != nil {
		return err
	}

	r.products = append(r.products, *product)
	r.index[product.ID] = len(r.products) - 1

	if err := r.store.Save(r.products); err != nil {
		// roll the insert back so no ghost entry survives a failed save
		r.products = r.products[:len(r.products)-1]
		delete(r.index, product.ID)
		return err
	}

	return nil
}

// Remove deletes the product with the given id and persists. On a failed
// save the product is restored at its original position.
func (r *inventoryRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, exists := r.index[id]
	if !exists {
		return ErrProductNotFound
	}

	removed := r.products[pos]
	r.products = append(r.products[:pos], r.products[pos+1:]...)
	r.rebuildIndex()

	if err := r.store.Save(r.products); err != nil {
		r.products = append(r.products[:pos], append([]domain.Product{removed}, r.products[pos:]...)...)
		r.rebuildIndex()
		return err
	}

	return nil
}

// Update applies a partial update. All supplied fields are validated before
// any is applied; a failed save restores the previous values.
func (r *inventoryRepository) Update(id string, fields UpdateFields) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, exists := r.index[id]
	if !exists {
		return nil, ErrProductNotFound
	}

	if fields.Name != nil {
		if err := domain.ValidateName(*fields.Name); err != nil {
			return nil, err
		}
	}
	if fields.Quantity != nil {
		if err := domain.ValidateQuantity(*fields.Quantity); err != nil {
			return nil, err
		}
	}
	if fields.UnitPrice != nil {
		if err := domain.ValidateUnitPrice(*fields.UnitPrice); err != nil {
			return nil, err
		}
	}

	original := r.products[pos]

	if fields.Name != nil {
		r.products[pos].Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Quantity != nil {
		r.products[pos].Quantity = *fields.Quantity
	}
	if fields.UnitPrice != nil {
		r.products[pos].UnitPrice = *fields.UnitPrice
	}
	if fields.Category != nil {
		r.products[pos].Category = strings.TrimSpace(*fields.Category)
	}
	if fields.Supplier != nil {
		r.products[pos].Supplier = strings.TrimSpace(*fields.Supplier)
	}

	if err := r.store.Save(r.products); err != nil {
		r.products[pos] = original
		return nil, err
	}

	updated := r.products[pos]
	return &updated, nil
}

// AdjustStock applies a signed stock movement. The movement is rejected if
// it would drive the quantity below zero.
func (r *inventoryRepository) AdjustStock(id string, delta int) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, exists := r.index[id]
	if !exists {
		return nil, ErrProductNotFound
	}

	newQuantity := r.products[pos].Quantity + delta
	if newQuantity < 0 {
		return nil, &domain.ValidationError{
			Field:   "quantity",
			Message: "stock adjustment would make the quantity negative",
		}
	}

	original := r.products[pos]
	r.products[pos].Quantity = newQuantity

	if err := r.store.Save(r.products); err != nil {
		r.products[pos] = original
		return nil, err
	}

	updated := r.products[pos]
	return &updated, nil
}

// FindByID returns the product with the given id
func (r *inventoryRepository) FindByID(id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.index[id]
	if !exists {
		return nil, ErrProductNotFound
	}

	p := r.products[pos]
	return &p, nil
}

// SearchByName returns products whose name contains text, case-insensitive,
// in insertion order. Blank text yields no matches rather than all of them.
func (r *inventoryRepository) SearchByName(text string) []*domain.Product {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return []*domain.Product{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*domain.Product{}
	for i := range r.products {
		if strings.Contains(strings.ToLower(r.products[i].Name), needle) {
			p := r.products[i]
			results = append(results, &p)
		}
	}
	return results
}

// FilterByCategory returns products in the given category, case-insensitive
func (r *inventoryRepository) FilterByCategory(category string) []*domain.Product {
	wanted := strings.ToLower(strings.TrimSpace(category))
	if wanted == "" {
		return []*domain.Product{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*domain.Product{}
	for i := range r.products {
		if strings.ToLower(r.products[i].Category) == wanted {
			p := r.products[i]
			results = append(results, &p)
		}
	}
	return results
}

// LowStock returns products whose quantity is at or below the threshold
func (r *inventoryRepository) LowStock(threshold int) []*domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*domain.Product{}
	for i := range r.products {
		if r.products[i].Quantity <= threshold {
			p := r.products[i]
			results = append(results, &p)
		}
	}
	return results
}

// List returns all products in insertion order
func (r *inventoryRepository) List() []*domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*domain.Product, 0, len(r.products))
	for i := range r.products {
		p := r.products[i]
		results = append(results, &p)
	}
	return results
}

// Categories returns the distinct non-empty categories in order of first use
func (r *inventoryRepository) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.distinct(func(p *domain.Product) string { return p.Category })
}

// Suppliers returns the distinct non-empty suppliers in order of first use
func (r *inventoryRepository) Suppliers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.distinct(func(p *domain.Product) string { return p.Supplier })
}

// Len returns the number of products held
func (r *inventoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.products)
}

// Reload re-reads the backing file, replacing in-memory state. On any load
// error the current state is kept.
func (r *inventoryRepository) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.store.Load()
	if err != nil {
		return err
	}

	r.replace(products)
	return nil
}

// ResetCorrupt backs up the corrupt backing file, empties the repository and
// writes a fresh empty file. Returns the backup path.
func (r *inventoryRepository) ResetCorrupt() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	backupPath, err := r.store.BackupCorrupt()
	if err != nil {
		return "", err
	}

	r.replace(nil)
	if err := r.store.Save(r.products); err != nil {
		return backupPath, err
	}

	r.logger.Warn("Inventory reset after corrupt backing file",
		zap.String("path", r.store.Path()),
		zap.String("backup", backupPath),
	)
	return backupPath, nil
}

func (r *inventoryRepository) replace(products []domain.Product) {
	r.products = products
	r.rebuildIndex()
}

func (r *inventoryRepository) rebuildIndex() {
	r.index = make(map[string]int, len(r.products))
	for i := range r.products {
		r.index[r.products[i].ID] = i
	}
}

func (r *inventoryRepository) distinct(key func(*domain.Product) string) []string {
	seen := make(map[string]bool)
	values := []string{}
	for i := range r.products {
		v := key(&r.products[i])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
