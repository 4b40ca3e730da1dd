package scene

import "math"

// Ray is a half-line starting at Origin. Dir need not be normalized.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// Pick returns the ID of the nearest instance whose bounding sphere the ray
// hits. A miss returns ok=false, which a renderer maps to clearing the
// selection.
func Pick(ray Ray, instances []Instance) (id string, ok bool) {
	dir := ray.Dir.Normalize()
	if dir.Len() == 0 {
		return "", false
	}
	best := math.Inf(1)
	for _, inst := range instances {
		t, hit := intersectSphere(ray.Origin, dir, inst.Position, inst.BoundingRadius())
		if hit && t < best {
			best = t
			id = inst.ID
			ok = true
		}
	}
	return id, ok
}

// intersectSphere returns the distance along a unit dir to the first
// intersection in front of origin.
func intersectSphere(origin, dir, center Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		// origin inside the sphere
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// OrbitCamera looks at Target from a point on a sphere of radius Distance.
// Yaw rotates around the vertical axis, Pitch tilts towards it.
type OrbitCamera struct {
	Target   Vec3
	Yaw      float64
	Pitch    float64
	Distance float64
	FOV      float64 // vertical field of view, radians
	Aspect   float64 // width / height
}

// DefaultCamera frames the spawn spiral from slightly above.
func DefaultCamera() OrbitCamera {
	return OrbitCamera{
		Yaw:      0,
		Pitch:    0.35,
		Distance: 12,
		FOV:      math.Pi / 3,
		Aspect:   1,
	}
}

// Eye returns the camera position.
func (c OrbitCamera) Eye() Vec3 {
	sy, cy := math.Sincos(c.Yaw)
	sp, cp := math.Sincos(c.Pitch)
	return c.Target.Add(Vec3{sy * cp, sp, cy * cp}.Scale(c.Distance))
}

// Ray returns the world-space ray through normalized screen coordinates
// x, y in [-1, 1] (y up).
func (c OrbitCamera) Ray(x, y float64) Ray {
	eye := c.Eye()
	forward := c.Target.Sub(eye).Normalize()
	right := forward.Cross(Vec3{0, 1, 0}).Normalize()
	up := right.Cross(forward)
	h := math.Tan(c.FOV / 2)
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	dir := forward.
		Add(right.Scale(x * h * aspect)).
		Add(up.Scale(y * h))
	return Ray{Origin: eye, Dir: dir.Normalize()}
}
