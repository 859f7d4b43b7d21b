package model

import (
	"fmt"
	"strings"
	"time"

	"furniture-service/internal/designer"

	"gorm.io/datatypes"
)

// Product categories
const (
	CategoryLivingRoom = "Living Room"
	CategoryBedroom    = "Bedroom"
	CategoryDiningRoom = "Dining Room"
	CategoryOffice     = "Office"
	CategoryStorage    = "Storage"
)

// Categories lists every accepted product category
var Categories = []string{CategoryLivingRoom, CategoryBedroom, CategoryDiningRoom, CategoryOffice, CategoryStorage}

// MaxTitleLength bounds product and design names
const MaxTitleLength = 100

// Product is a catalog item that can be placed in a room design
type Product struct {
	ID          uint                                    `json:"id" gorm:"primaryKey"`
	Title       string                                  `json:"title" gorm:"type:varchar(100);not null"`
	Description string                                  `json:"description" gorm:"type:text;not null"`
	Price       float64                                 `json:"price" gorm:"not null"`
	Category    string                                  `json:"category" gorm:"type:varchar(50);index;not null"`
	Rating      float64                                 `json:"rating" gorm:"default:0"`
	Thumbnail   string                                  `json:"thumbnail" gorm:"not null"`
	Images      datatypes.JSONSlice[string]             `json:"images"`
	ModelURL    string                                  `json:"modelUrl" gorm:"not null"`
	Dimensions  datatypes.JSONType[designer.Dimensions] `json:"dimensions"`
	Materials   datatypes.JSONSlice[string]             `json:"materials"`
	Colors      datatypes.JSONSlice[string]             `json:"colors"`
	InStock     bool                                    `json:"inStock" gorm:"not null"`
	Featured    bool                                    `json:"featured" gorm:"not null"`
	CreatedAt   time.Time                               `json:"createdAt"`
	UpdatedAt   time.Time                               `json:"updatedAt"`
}

// ValidationError reports a field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidCategory reports whether c is one of Categories
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Validate checks required fields and ranges
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return invalid("title", "Please provide a product title")
	case len(p.Title) > MaxTitleLength:
		return invalid("title", "Title cannot be more than %d characters", MaxTitleLength)
	case strings.TrimSpace(p.Description) == "":
		return invalid("description", "Please provide a product description")
	case p.Price < 0:
		return invalid("price", "Price must be a positive number")
	case !ValidCategory(p.Category):
		return invalid("category", "Please select a valid category")
	case p.Rating < 0 || p.Rating > 5:
		return invalid("rating", "Rating must be between 0 and 5")
	case p.Thumbnail == "":
		return invalid("thumbnail", "Please provide a product thumbnail")
	case p.ModelURL == "":
		return invalid("modelUrl", "Please provide a 3D model URL")
	}

	d := p.Dimensions.Data()
	if d.Width <= 0 || d.Height <= 0 || d.Length <= 0 {
		return invalid("dimensions", "Please provide product dimensions")
	}
	return nil
}

// MediaURLs returns every stored file the product references
func (p *Product) MediaURLs() []string {
	urls := make([]string, 0, len(p.Images)+2)
	if p.Thumbnail != "" {
		urls = append(urls, p.Thumbnail)
	}
	urls = append(urls, p.Images...)
	if p.ModelURL != "" {
		urls = append(urls, p.ModelURL)
	}
	return urls
}

// PlacementSpec returns the placement a product contributes when added to a room
func (p *Product) PlacementSpec() designer.PlacementSpec {
	dims := p.Dimensions.Data()
	return designer.PlacementSpec{
		ProductID:  fmt.Sprint(p.ID),
		Type:       p.Category,
		Title:      p.Title,
		ModelURL:   p.ModelURL,
		Thumbnail:  p.Thumbnail,
		Dimensions: &dims,
	}
}
