package service

import (
	"context"
	"errors"
	"strings"

	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/repository"
)

var (
	ErrTagNotFound        = errors.New("tag not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// AttributeRepository is the persistence contract for tags and ingredients.
type AttributeRepository interface {
	Create(ctx context.Context, a *model.Attribute) error
	List(ctx context.Context, userID int64, assignedOnly bool) ([]model.Attribute, error)
	Get(ctx context.Context, userID, id int64) (*model.Attribute, error)
	Update(ctx context.Context, a *model.Attribute) error
	Delete(ctx context.Context, userID, id int64) error
	OwnedIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error)
}

// AttributeService handles tag and ingredient business logic. One instance
// serves each kind.
type AttributeService struct {
	repo     AttributeRepository
	notFound error
}

// NewTagService creates an AttributeService for tags.
func NewTagService(repo AttributeRepository) *AttributeService {
	return &AttributeService{repo: repo, notFound: ErrTagNotFound}
}

// NewIngredientService creates an AttributeService for ingredients.
func NewIngredientService(repo AttributeRepository) *AttributeService {
	return &AttributeService{repo: repo, notFound: ErrIngredientNotFound}
}

// Create stores a new attribute owned by userID.
func (s *AttributeService) Create(ctx context.Context, userID int64, req model.AttributeRequest) (model.AttributeResponse, error) {
	name, err := checkName(req)
	if err != nil {
		return model.AttributeResponse{}, err
	}

	a := &model.Attribute{UserID: userID, Name: name}
	if err := s.repo.Create(ctx, a); err != nil {
		return model.AttributeResponse{}, err
	}

	return model.NewAttributeResponse(a), nil
}

// List returns the user's attributes ordered by name descending.
func (s *AttributeService) List(ctx context.Context, userID int64, filter model.AttributeFilter) ([]model.AttributeResponse, error) {
	attrs, err := s.repo.List(ctx, userID, filter.AssignedOnly)
	if err != nil {
		return nil, err
	}
	return model.NewAttributeResponses(attrs), nil
}

// Update renames an attribute owned by userID. Name is the only writable
// field, so full and partial updates behave the same.
func (s *AttributeService) Update(ctx context.Context, userID, id int64, req model.AttributeRequest) (model.AttributeResponse, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return model.AttributeResponse{}, s.mapErr(err)
	}

	name, err := checkName(req)
	if err != nil {
		return model.AttributeResponse{}, err
	}

	a.Name = name
	if err := s.repo.Update(ctx, a); err != nil {
		return model.AttributeResponse{}, err
	}

	return model.NewAttributeResponse(a), nil
}

// Delete removes an attribute owned by userID and unlinks it from drugs.
func (s *AttributeService) Delete(ctx context.Context, userID, id int64) error {
	return s.mapErr(s.repo.Delete(ctx, userID, id))
}

func (s *AttributeService) mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return s.notFound
	}
	return err
}

func checkName(req model.AttributeRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)

	ve := &ValidationError{}
	checkStruct(ve, req)
	if err := ve.OrNil(); err != nil {
		return "", err
	}
	return req.Name, nil
}
