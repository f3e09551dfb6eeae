package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Drug represents a tracked medication owned by a single user.
type Drug struct {
	ID             int64
	UserID         int64
	Title          string
	DailyFrequency int
	Price          decimal.Decimal
	Link           string
	Image          string
	Tags           []Attribute
	Ingredients    []Attribute
}

func (d *Drug) String() string {
	return d.Title
}

func (d *Drug) TagIDs() []int64 {
	return attributeIDs(d.Tags)
}

func (d *Drug) IngredientIDs() []int64 {
	return attributeIDs(d.Ingredients)
}

func attributeIDs(attrs []Attribute) []int64 {
	ids := make([]int64, 0, len(attrs))
	for _, a := range attrs {
		ids = append(ids, a.ID)
	}
	return ids
}

// UpdateMode selects between replace (PUT) and merge (PATCH) semantics.
type UpdateMode int

const (
	FullUpdate UpdateMode = iota
	PartialUpdate
)

func (m UpdateMode) String() string {
	if m == PartialUpdate {
		return "partial"
	}
	return "full"
}

// DrugRequest is the write payload for a drug. Nil fields were absent from
// the request body.
type DrugRequest struct {
	Title          *string          `json:"title" validate:"omitnil,min=1,max=255"`
	DailyFrequency *int             `json:"daily_frequency"`
	Price          *decimal.Decimal `json:"price"`
	Link           *string          `json:"link" validate:"omitnil,max=255"`
	Tags           *[]int64         `json:"tags"`
	Ingredients    *[]int64         `json:"ingredients"`
}

// Missing returns the JSON names of fields a full write cannot omit.
func (r *DrugRequest) Missing(mode UpdateMode) []string {
	if mode != FullUpdate {
		return nil
	}
	var missing []string
	if r.Title == nil {
		missing = append(missing, "title")
	}
	if r.DailyFrequency == nil {
		missing = append(missing, "daily_frequency")
	}
	if r.Price == nil {
		missing = append(missing, "price")
	}
	return missing
}

// Apply copies the request onto d. In full mode absent tags or ingredients
// clear the corresponding set; in partial mode they are left alone. Present
// id lists replace the set. An absent link is always kept.
func (r *DrugRequest) Apply(d *Drug, mode UpdateMode) {
	if r.Title != nil {
		d.Title = *r.Title
	}
	if r.DailyFrequency != nil {
		d.DailyFrequency = *r.DailyFrequency
	}
	if r.Price != nil {
		d.Price = *r.Price
	}

	if r.Link != nil {
		d.Link = *r.Link
	}

	switch {
	case r.Tags != nil:
		d.Tags = attributesFromIDs(*r.Tags)
	case mode == FullUpdate:
		d.Tags = nil
	}

	switch {
	case r.Ingredients != nil:
		d.Ingredients = attributesFromIDs(*r.Ingredients)
	case mode == FullUpdate:
		d.Ingredients = nil
	}
}

func attributesFromIDs(ids []int64) []Attribute {
	attrs := make([]Attribute, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		attrs = append(attrs, Attribute{ID: id})
	}
	return attrs
}

// DrugFilter narrows a drug listing. Empty slices do not filter.
type DrugFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

// DrugResponse is the list/write representation with identifier lists.
type DrugResponse struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Ingredients    []int64 `json:"ingredients"`
	Tags           []int64 `json:"tags"`
	DailyFrequency int     `json:"daily_frequency"`
	Price          string  `json:"price"`
	Link           string  `json:"link"`
}

func NewDrugResponse(d *Drug) DrugResponse {
	return DrugResponse{
		ID:             d.ID,
		Title:          d.Title,
		Ingredients:    d.IngredientIDs(),
		Tags:           d.TagIDs(),
		DailyFrequency: d.DailyFrequency,
		Price:          d.Price.StringFixed(2),
		Link:           d.Link,
	}
}

// NewDrugResponses converts drugs to responses. The result is never nil.
func NewDrugResponses(drugs []Drug) []DrugResponse {
	out := make([]DrugResponse, 0, len(drugs))
	for i := range drugs {
		out = append(out, NewDrugResponse(&drugs[i]))
	}
	return out
}

// DrugDetailResponse expands tags and ingredients and includes the image URL.
type DrugDetailResponse struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Ingredients    []AttributeResponse `json:"ingredients"`
	Tags           []AttributeResponse `json:"tags"`
	DailyFrequency int                 `json:"daily_frequency"`
	Price          string              `json:"price"`
	Link           string              `json:"link"`
	Image          *string             `json:"image"`
}

func NewDrugDetailResponse(d *Drug, mediaURL string) DrugDetailResponse {
	return DrugDetailResponse{
		ID:             d.ID,
		Title:          d.Title,
		Ingredients:    NewAttributeResponses(d.Ingredients),
		Tags:           NewAttributeResponses(d.Tags),
		DailyFrequency: d.DailyFrequency,
		Price:          d.Price.StringFixed(2),
		Link:           d.Link,
		Image:          imageURL(d.Image, mediaURL),
	}
}

// DrugImageResponse is returned by the image upload action.
type DrugImageResponse struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

func NewDrugImageResponse(d *Drug, mediaURL string) DrugImageResponse {
	return DrugImageResponse{ID: d.ID, Image: imageURL(d.Image, mediaURL)}
}

func imageURL(image, mediaURL string) *string {
	if image == "" {
		return nil
	}
	u := strings.TrimSuffix(mediaURL, "/") + "/" + strings.TrimPrefix(image, "/")
	return &u
}
