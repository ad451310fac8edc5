package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrDivideByZero is returned by the division helpers when a divisor component is zero.
var ErrDivideByZero = errors.New("division by zero")

// Vector is a 2D coordinate. Entity positions live on the half-tile grid,
// tile positions on the whole-tile grid.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is a shorthand constructor for Vector.
func Vec(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Mul(o Vector) Vector { return Vector{v.X * o.X, v.Y * o.Y} }

func (v Vector) AddScalar(s float64) Vector { return Vector{v.X + s, v.Y + s} }
func (v Vector) SubScalar(s float64) Vector { return Vector{v.X - s, v.Y - s} }
func (v Vector) Scale(s float64) Vector     { return Vector{v.X * s, v.Y * s} }

// Div divides component-wise.
func (v Vector) Div(o Vector) (Vector, error) {
	if o.X == 0 || o.Y == 0 {
		return Vector{}, fmt.Errorf("divide %s by %s: %w", v, o, ErrDivideByZero)
	}
	return Vector{v.X / o.X, v.Y / o.Y}, nil
}

func (v Vector) DivScalar(s float64) (Vector, error) {
	if s == 0 {
		return Vector{}, fmt.Errorf("divide %s by 0: %w", v, ErrDivideByZero)
	}
	return Vector{v.X / s, v.Y / s}, nil
}

// FloorDiv divides component-wise and floors the result.
func (v Vector) FloorDiv(o Vector) (Vector, error) {
	q, err := v.Div(o)
	if err != nil {
		return Vector{}, err
	}
	return Vector{math.Floor(q.X), math.Floor(q.Y)}, nil
}

func (v Vector) Abs() Vector { return Vector{math.Abs(v.X), math.Abs(v.Y)} }

// Round rounds both components to the given number of decimal places.
func (v Vector) Round(places int) Vector {
	p := math.Pow(10, float64(places))
	return Vector{math.Round(v.X*p) / p, math.Round(v.Y*p) / p}
}

func (v Vector) Equal(o Vector) bool { return v.X == o.X && v.Y == o.Y }

// Length returns the Euclidean length.
func (v Vector) Length() float64 { return math.Hypot(v.X, v.Y) }

// Distance returns the Euclidean distance from v to o.
func (v Vector) Distance(o Vector) float64 { return v.Sub(o).Length() }

// RotateQuarter rotates v clockwise (screen coordinates, +y down) by n quarter
// turns about the origin: (x, y) -> (-y, x) per turn. Exact for grid values.
func (v Vector) RotateQuarter(n int) Vector {
	switch ((n % 4) + 4) % 4 {
	case 1:
		return Vector{-v.Y, v.X}
	case 2:
		return Vector{-v.X, -v.Y}
	case 3:
		return Vector{v.Y, -v.X}
	}
	return v
}

// FlipX mirrors across the vertical axis; FlipY across the horizontal axis.
func (v Vector) FlipX() Vector { return Vector{-v.X, v.Y} }
func (v Vector) FlipY() Vector { return Vector{v.X, -v.Y} }

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// Point is an integer grid coordinate, used for tiles.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Pt(x, y int) Point { return Point{X: x, Y: y} }

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Vector converts p to a float vector.
func (p Point) Vector() Vector { return Vector{float64(p.X), float64(p.Y)} }

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
