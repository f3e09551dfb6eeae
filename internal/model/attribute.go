package model

// Attribute is a named, user-owned label attached to drugs. Tags and
// ingredients share this shape and live in separate tables.
type Attribute struct {
	ID     int64
	UserID int64
	Name   string
}

func (a *Attribute) String() string {
	return a.Name
}

// AttributeRequest is the write payload for a tag or ingredient.
type AttributeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// AttributeFilter narrows a tag or ingredient listing.
type AttributeFilter struct {
	// AssignedOnly keeps only records linked to at least one drug.
	AssignedOnly bool
}

// AttributeResponse is the {id, name} representation of a tag or ingredient.
type AttributeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func NewAttributeResponse(a *Attribute) AttributeResponse {
	return AttributeResponse{ID: a.ID, Name: a.Name}
}

// NewAttributeResponses converts attributes to responses. The result is never nil.
func NewAttributeResponses(attrs []Attribute) []AttributeResponse {
	out := make([]AttributeResponse, 0, len(attrs))
	for i := range attrs {
		out = append(out, NewAttributeResponse(&attrs[i]))
	}
	return out
}
