package component

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2        { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2        { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2   { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Len() float64           { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64    { return v.Sub(o).Len() }
func FromAngle(rad, mag float64) Vec2 { return Vec2{math.Cos(rad) * mag, math.Sin(rad) * mag} }

// Rect is an axis-aligned rectangle; Min inclusive, Max exclusive.
type Rect struct {
	Min Vec2 `json:"min" msgpack:"min"`
	Max Vec2 `json:"max" msgpack:"max"`
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Wrap folds p back into r toroidally.
func (r Rect) Wrap(p Vec2) Vec2 {
	return Vec2{wrap(p.X, r.Min.X, r.Width()), wrap(p.Y, r.Min.Y, r.Height())}
}

func wrap(v, min, span float64) float64 {
	if span <= 0 {
		return v
	}
	v = math.Mod(v-min, span)
	if v < 0 {
		v += span
	}
	return v + min
}

// Kinematics is the motion state of an entity.
type Kinematics struct {
	Pos    Vec2    `json:"pos" msgpack:"pos"`
	Vel    Vec2    `json:"vel" msgpack:"vel"`
	Rot    float64 `json:"rot" msgpack:"rot"`
	AngVel float64 `json:"ang_vel" msgpack:"ang_vel"`
}

// Integrate advances the motion state by dt seconds.
func (k *Kinematics) Integrate(dt float64) {
	k.Pos = k.Pos.Add(k.Vel.Scale(dt))
	k.Rot = math.Mod(k.Rot+k.AngVel*dt, 2*math.Pi)
}
