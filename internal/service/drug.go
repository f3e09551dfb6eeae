package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/repository"
	"github.com/medtrack/medtrack-go/internal/storage"
)

var (
	ErrDrugNotFound  = errors.New("drug not found")
	ErrImageRequired = errors.New("no file was submitted")
	ErrInvalidImage  = errors.New("upload a valid image; the file you uploaded was either not an image or a corrupted image")
	ErrUnknownID     = errors.New("object does not exist")
)

// DrugRepository is the persistence contract DrugService depends on.
type DrugRepository interface {
	Create(ctx context.Context, d *model.Drug) error
	List(ctx context.Context, userID int64, filter model.DrugFilter) ([]model.Drug, error)
	Get(ctx context.Context, userID, id int64) (*model.Drug, error)
	Update(ctx context.Context, d *model.Drug) error
	UpdateImage(ctx context.Context, userID, id int64, image string) error
	Delete(ctx context.Context, userID, id int64) error
}

// OwnedIDLookup resolves which attribute ids belong to a user.
type OwnedIDLookup interface {
	OwnedIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error)
}

// MediaStore persists uploaded files by media-relative name.
type MediaStore interface {
	Save(ctx context.Context, name string, data []byte) error
	Remove(name string) error
}

// DrugService handles drug business logic.
type DrugService struct {
	repo        DrugRepository
	tags        OwnedIDLookup
	ingredients OwnedIDLookup
	media       MediaStore
	mediaURL    string
}

// NewDrugService creates a new DrugService. mediaURL prefixes stored image
// paths in responses.
func NewDrugService(repo DrugRepository, tags, ingredients OwnedIDLookup, media MediaStore, mediaURL string) *DrugService {
	return &DrugService{
		repo:        repo,
		tags:        tags,
		ingredients: ingredients,
		media:       media,
		mediaURL:    mediaURL,
	}
}

// Create stores a new drug owned by userID.
func (s *DrugService) Create(ctx context.Context, userID int64, req model.DrugRequest) (model.DrugResponse, error) {
	d := &model.Drug{UserID: userID}
	if err := s.apply(ctx, userID, req, d, model.FullUpdate); err != nil {
		return model.DrugResponse{}, err
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return model.DrugResponse{}, err
	}

	return s.reload(ctx, userID, d.ID)
}

// List returns the user's drugs, newest first, narrowed by filter.
func (s *DrugService) List(ctx context.Context, userID int64, filter model.DrugFilter) ([]model.DrugResponse, error) {
	drugs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return model.NewDrugResponses(drugs), nil
}

// Get returns the detail representation of a drug owned by userID.
func (s *DrugService) Get(ctx context.Context, userID, id int64) (model.DrugDetailResponse, error) {
	d, err := s.get(ctx, userID, id)
	if err != nil {
		return model.DrugDetailResponse{}, err
	}
	return model.NewDrugDetailResponse(d, s.mediaURL), nil
}

// Update applies req to a drug owned by userID using mode semantics.
func (s *DrugService) Update(ctx context.Context, userID, id int64, req model.DrugRequest, mode model.UpdateMode) (model.DrugResponse, error) {
	d, err := s.get(ctx, userID, id)
	if err != nil {
		return model.DrugResponse{}, err
	}

	if err := s.apply(ctx, userID, req, d, mode); err != nil {
		return model.DrugResponse{}, err
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return model.DrugResponse{}, err
	}

	return s.reload(ctx, userID, d.ID)
}

// Delete removes a drug owned by userID and its stored image.
func (s *DrugService) Delete(ctx context.Context, userID, id int64) error {
	d, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDrugNotFound
		}
		return err
	}

	s.removeImage(d.Image)
	return nil
}

// SetImage validates and stores an uploaded image for a drug owned by userID,
// replacing any previous image.
func (s *DrugService) SetImage(ctx context.Context, userID, id int64, filename string, data []byte) (model.DrugImageResponse, error) {
	d, err := s.get(ctx, userID, id)
	if err != nil {
		return model.DrugImageResponse{}, err
	}

	ve := &ValidationError{}
	if len(data) == 0 {
		ve.Add("image", ErrImageRequired)
		return model.DrugImageResponse{}, ve
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		ve.Add("image", ErrInvalidImage)
		return model.DrugImageResponse{}, ve
	}

	if filepath.Ext(filename) == "" {
		filename += "." + format
	}
	name := storage.DrugImagePath(d, filename)

	if err := s.media.Save(ctx, name, data); err != nil {
		return model.DrugImageResponse{}, fmt.Errorf("saving drug image: %w", err)
	}

	if err := s.repo.UpdateImage(ctx, userID, id, name); err != nil {
		s.removeImage(name)
		return model.DrugImageResponse{}, err
	}

	if d.Image != name {
		s.removeImage(d.Image)
	}
	d.Image = name

	return model.NewDrugImageResponse(d, s.mediaURL), nil
}

func (s *DrugService) get(ctx context.Context, userID, id int64) (*model.Drug, error) {
	d, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDrugNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DrugService) reload(ctx context.Context, userID, id int64) (model.DrugResponse, error) {
	d, err := s.get(ctx, userID, id)
	if err != nil {
		return model.DrugResponse{}, err
	}
	return model.NewDrugResponse(d), nil
}

// apply validates req against mode, resolves the referenced tag and
// ingredient ids for userID and copies the request onto d.
func (s *DrugService) apply(ctx context.Context, userID int64, req model.DrugRequest, d *model.Drug, mode model.UpdateMode) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if req.Link != nil {
		link := strings.TrimSpace(*req.Link)
		req.Link = &link
	}

	ve := &ValidationError{}
	for _, field := range req.Missing(mode) {
		ve.Add(field, ErrFieldRequired)
	}
	checkStruct(ve, req)
	if req.Price != nil {
		checkPrice(ve, *req.Price)
	}

	if req.Tags != nil {
		if err := s.checkOwned(ctx, ve, "tags", s.tags, userID, *req.Tags); err != nil {
			return err
		}
	}
	if req.Ingredients != nil {
		if err := s.checkOwned(ctx, ve, "ingredients", s.ingredients, userID, *req.Ingredients); err != nil {
			return err
		}
	}

	if err := ve.OrNil(); err != nil {
		return err
	}

	req.Apply(d, mode)
	return nil
}

// checkOwned records a field error for the first id userID does not own.
// Foreign ids are reported exactly like nonexistent ones.
func (s *DrugService) checkOwned(ctx context.Context, ve *ValidationError, field string, lookup OwnedIDLookup, userID int64, ids []int64) error {
	owned, err := lookup.OwnedIDs(ctx, userID, ids)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if !owned[id] {
			ve.Add(field, fmt.Errorf("%w: invalid pk %q", ErrUnknownID, fmt.Sprint(id)))
			return nil
		}
	}
	return nil
}

func (s *DrugService) removeImage(name string) {
	if name == "" {
		return
	}
	if err := s.media.Remove(name); err != nil {
		slog.Warn("failed to remove drug image", "image", name, "error", err)
	}
}
