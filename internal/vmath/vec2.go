// Package vmath provides the small 2D vector type shared by the sensor model,
// the control loop and the display host.
package vmath

import (
	"fmt"
	"math"
)

// Vec2 is a point, direction or velocity in the simulation plane.
// Screen convention: +X is right, +Y is down.
type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Zero is the origin.
var Zero = Vec2{}

func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Neg() Vec2            { return Vec2{-v.X, -v.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Div(s float64) Vec2   { return Vec2{v.X / s, v.Y / s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) LenSq() float64       { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64         { return math.Sqrt(v.LenSq()) }

// DistSq returns the squared distance between two points.
func (v Vec2) DistSq(o Vec2) float64 { return v.Sub(o).LenSq() }

// IsFinite reports whether neither component is NaN or Inf.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", v.X, v.Y)
}
