package designer

import "math"

// Wall opacities used by the 3D view
const (
	WallOpacity       = 0.6
	HiddenWallOpacity = 0.0
)

// HiddenWall returns the wall the camera is looking through from inside
// the room for a given view direction. The dominant horizontal component
// picks the axis; ties go to the z axis. A direction with no horizontal
// component hides nothing.
func HiddenWall(direction Vec3) (Wall, bool) {
	x, z := direction[AxisX], direction[AxisZ]
	absX, absZ := math.Abs(x), math.Abs(z)

	if absX == 0 && absZ == 0 {
		// top-down views keep every wall; the z >= 0 rule below would hide the front one
		return "", false
	}
	if absX > absZ {
		if x < 0 {
			return WallLeft, true
		}
		return WallRight, true
	}
	if z < 0 {
		return WallBack, true
	}
	return WallFront, true
}

// WallOpacities returns the opacity of each physical wall for a camera direction
func WallOpacities(direction Vec3) map[Wall]float64 {
	out := make(map[Wall]float64, len(Walls))
	for _, w := range Walls {
		out[w] = WallOpacity
	}
	if hidden, ok := HiddenWall(direction); ok {
		out[hidden] = HiddenWallOpacity
	}
	return out
}
