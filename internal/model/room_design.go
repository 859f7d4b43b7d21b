package model

import (
	"strings"
	"time"

	"furniture-service/internal/designer"

	"gorm.io/datatypes"
)

// RoomDesign is a saved furniture layout owned by one user
type RoomDesign struct {
	ID         uint                                        `json:"id" gorm:"primaryKey"`
	UserID     uint                                        `json:"userId" gorm:"index;not null"`
	Name       string                                      `json:"name" gorm:"type:varchar(100);not null"`
	Items      datatypes.JSONSlice[designer.Placement]     `json:"items"`
	WallColors datatypes.JSONType[designer.WallColors]     `json:"wallColors"`
	FloorColor string                                      `json:"floorColor" gorm:"type:varchar(9)"`
	Dimensions datatypes.JSONType[designer.RoomDimensions] `json:"dimensions"`
	CreatedAt  time.Time                                   `json:"createdAt"`
	UpdatedAt  time.Time                                   `json:"updatedAt"`
}

// ValidateDesignName checks a room design name
func ValidateDesignName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalid("name", "Please provide a name for your design")
	case len(name) > MaxTitleLength:
		return invalid("name", "Name cannot be more than %d characters", MaxTitleLength)
	}
	return nil
}

// Room returns the stored room shell
func (d *RoomDesign) Room() designer.Room {
	return designer.Room{
		Dimensions: d.Dimensions.Data(),
		WallColors: d.WallColors.Data(),
		FloorColor: d.FloorColor,
	}
}

// Canvas loads the design into an editable canvas
func (d *RoomDesign) Canvas() (*designer.Canvas, error) {
	return designer.NewCanvas(d.Room(), d.Items)
}

// Apply copies the canvas state back onto the design
func (d *RoomDesign) Apply(c *designer.Canvas) {
	room := c.Room()
	d.Dimensions = datatypes.NewJSONType(room.Dimensions)
	d.WallColors = datatypes.NewJSONType(room.WallColors)
	d.FloorColor = room.FloorColor
	d.Items = c.Items()
}
