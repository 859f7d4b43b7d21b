// Package designer holds the room layout state behind the 3D room designer:
// room dimensions, wall and floor colors, furniture placements and the
// single-item selection model. A Canvas is not safe for concurrent use.
package designer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrItemNotFound      = errors.New("item not found in room")
	ErrAlreadyPlaced     = errors.New("product is already placed in this room")
	ErrInvalidColor      = errors.New("color must be a hex value like #A0522D")
	ErrInvalidScale      = errors.New("scale must be greater than zero")
	ErrInvalidDimensions = errors.New("room dimensions must be greater than zero")
	ErrUnknownWall       = errors.New("unknown wall")
	ErrUniformWalls      = errors.New("walls are uniform, only the 'all' wall can be painted")
)

// Default room values
const (
	DefaultRoomWidth  = 20.0
	DefaultRoomDepth  = 20.0
	DefaultRoomHeight = 5.0

	DefaultWallColor     = "#E0E0E0"
	DefaultSideWallColor = "#D3D3D3"
	DefaultFloorColor    = "#BFBFBF"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidColor reports whether s is a #RGB or #RRGGBB color
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Wall names a room wall. WallAll addresses every wall at once.
type Wall string

const (
	WallAll   Wall = "all"
	WallFront Wall = "front"
	WallBack  Wall = "back"
	WallLeft  Wall = "left"
	WallRight Wall = "right"
)

// Walls lists the four physical walls
var Walls = []Wall{WallFront, WallBack, WallLeft, WallRight}

// ParseWall converts a string to a Wall
func ParseWall(s string) (Wall, error) {
	w := Wall(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case WallAll, WallFront, WallBack, WallLeft, WallRight:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWall, s)
}

// RoomDimensions is the room size in scene units
type RoomDimensions struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// Valid reports whether every side is positive
func (d RoomDimensions) Valid() bool {
	return d.Width > 0 && d.Depth > 0 && d.Height > 0
}

// WallColors maps each wall to its color. All is blank when walls differ,
// except in the stock colors of a new room.
type WallColors struct {
	All   string `json:"all"`
	Front string `json:"front"`
	Back  string `json:"back"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Get returns the color of a single wall
func (w WallColors) Get(wall Wall) string {
	switch wall {
	case WallAll:
		return w.All
	case WallFront:
		return w.Front
	case WallBack:
		return w.Back
	case WallLeft:
		return w.Left
	case WallRight:
		return w.Right
	}
	return ""
}

func (w *WallColors) set(wall Wall, color string) {
	switch wall {
	case WallAll:
		w.All = color
	case WallFront:
		w.Front = color
	case WallBack:
		w.Back = color
	case WallLeft:
		w.Left = color
	case WallRight:
		w.Right = color
	}
}

// Uniform reports whether all four walls share one color
func (w WallColors) Uniform() bool {
	return w.Front == w.Back && w.Back == w.Left && w.Left == w.Right
}

// DefaultWallColors returns the colors of a freshly created room
func DefaultWallColors() WallColors {
	return WallColors{
		All:   DefaultWallColor,
		Front: DefaultWallColor,
		Back:  DefaultWallColor,
		Left:  DefaultSideWallColor,
		Right: DefaultSideWallColor,
	}
}

func (w WallColors) withDefaults() WallColors {
	if w == (WallColors{}) {
		return DefaultWallColors()
	}
	d := DefaultWallColors()
	for _, wall := range Walls {
		if w.Get(wall) != "" {
			continue
		}
		if w.All != "" {
			w.set(wall, w.All)
		} else {
			w.set(wall, d.Get(wall))
		}
	}
	if !w.Uniform() {
		w.All = ""
	}
	return w
}

func (w WallColors) validate() error {
	for _, wall := range append([]Wall{WallAll}, Walls...) {
		c := w.Get(wall)
		if c == "" && wall == WallAll {
			continue
		}
		if !ValidColor(c) {
			return fmt.Errorf("%w: %s wall %q", ErrInvalidColor, wall, c)
		}
	}
	return nil
}

// Room is the configurable shell the furniture sits in
type Room struct {
	Dimensions RoomDimensions `json:"dimensions"`
	WallColors WallColors     `json:"wallColors"`
	FloorColor string         `json:"floorColor"`
}

// DefaultRoom returns a 20x20x5 room with the stock colors
func DefaultRoom() Room {
	return Room{
		Dimensions: RoomDimensions{Width: DefaultRoomWidth, Depth: DefaultRoomDepth, Height: DefaultRoomHeight},
		WallColors: DefaultWallColors(),
		FloorColor: DefaultFloorColor,
	}
}

// NormalizeRoom fills unset fields with defaults and validates the rest
func NormalizeRoom(r Room) (Room, error) {
	if r.Dimensions == (RoomDimensions{}) {
		r.Dimensions = DefaultRoom().Dimensions
	}
	if !r.Dimensions.Valid() {
		return Room{}, ErrInvalidDimensions
	}
	r.WallColors = r.WallColors.withDefaults()
	if err := r.WallColors.validate(); err != nil {
		return Room{}, err
	}
	if r.FloorColor == "" {
		r.FloorColor = DefaultFloorColor
	}
	if !ValidColor(r.FloorColor) {
		return Room{}, fmt.Errorf("%w: floor %q", ErrInvalidColor, r.FloorColor)
	}
	return r, nil
}
