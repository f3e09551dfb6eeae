package service

import (
	"context"
	"errors"

	"github.com/medtrack/medtrack-go/internal/model"
)

// =============================================================================
// Mock UserRepository
// =============================================================================

type mockUserRepository struct {
	createFunc     func(ctx context.Context, user *model.User) error
	getByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	getByIDFunc    func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

// =============================================================================
// Mock AttributeRepository
// =============================================================================

type mockAttributeRepository struct {
	createFunc   func(ctx context.Context, a *model.Attribute) error
	listFunc     func(ctx context.Context, userID int64, assignedOnly bool) ([]model.Attribute, error)
	getFunc      func(ctx context.Context, userID, id int64) (*model.Attribute, error)
	updateFunc   func(ctx context.Context, a *model.Attribute) error
	deleteFunc   func(ctx context.Context, userID, id int64) error
	ownedIDsFunc func(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error)
}

func (m *mockAttributeRepository) Create(ctx context.Context, a *model.Attribute) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	return errors.New("not implemented")
}

func (m *mockAttributeRepository) List(ctx context.Context, userID int64, assignedOnly bool) ([]model.Attribute, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, assignedOnly)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAttributeRepository) Get(ctx context.Context, userID, id int64) (*model.Attribute, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAttributeRepository) Update(ctx context.Context, a *model.Attribute) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, a)
	}
	return errors.New("not implemented")
}

func (m *mockAttributeRepository) Delete(ctx context.Context, userID, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, id)
	}
	return errors.New("not implemented")
}

func (m *mockAttributeRepository) OwnedIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error) {
	if m.ownedIDsFunc != nil {
		return m.ownedIDsFunc(ctx, userID, ids)
	}
	// Default: every id is owned.
	owned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// =============================================================================
// Mock DrugRepository
// =============================================================================

type mockDrugRepository struct {
	createFunc      func(ctx context.Context, d *model.Drug) error
	listFunc        func(ctx context.Context, userID int64, filter model.DrugFilter) ([]model.Drug, error)
	getFunc         func(ctx context.Context, userID, id int64) (*model.Drug, error)
	updateFunc      func(ctx context.Context, d *model.Drug) error
	updateImageFunc func(ctx context.Context, userID, id int64, image string) error
	deleteFunc      func(ctx context.Context, userID, id int64) error
}

func (m *mockDrugRepository) Create(ctx context.Context, d *model.Drug) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	return errors.New("not implemented")
}

func (m *mockDrugRepository) List(ctx context.Context, userID int64, filter model.DrugFilter) ([]model.Drug, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDrugRepository) Get(ctx context.Context, userID, id int64) (*model.Drug, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDrugRepository) Update(ctx context.Context, d *model.Drug) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, d)
	}
	return errors.New("not implemented")
}

func (m *mockDrugRepository) UpdateImage(ctx context.Context, userID, id int64, image string) error {
	if m.updateImageFunc != nil {
		return m.updateImageFunc(ctx, userID, id, image)
	}
	return errors.New("not implemented")
}

func (m *mockDrugRepository) Delete(ctx context.Context, userID, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, id)
	}
	return errors.New("not implemented")
}

// =============================================================================
// Mock MediaStore
// =============================================================================

type mockMediaStore struct {
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{saved: make(map[string][]byte)}
}

func (m *mockMediaStore) Save(_ context.Context, name string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[name] = data
	return nil
}

func (m *mockMediaStore) Remove(name string) error {
	m.removed = append(m.removed, name)
	delete(m.saved, name)
	return nil
}
