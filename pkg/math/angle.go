package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return mgl64.DegToRad(deg)
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return mgl64.RadToDeg(rad)
}

// WrapDegrees folds an angle into (-360, 360), keeping its sign.
func WrapDegrees(deg float64) float64 {
	return math.Mod(deg, 360)
}

// Clamp limits a to [low, high].
func Clamp(a, low, high float64) float64 {
	return mgl64.Clamp(a, low, high)
}

// RadiansVec converts every component of a degree vector to radians.
func RadiansVec(deg Vec3) Vec3 {
	return V3(Radians(deg.X), Radians(deg.Y), Radians(deg.Z))
}

// DegreesVec converts every component of a radian vector to degrees.
func DegreesVec(rad Vec3) Vec3 {
	return V3(Degrees(rad.X), Degrees(rad.Y), Degrees(rad.Z))
}
