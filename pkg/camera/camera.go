// Package camera builds primary rays through one of several projections
// (pinhole, fisheye, panoramic, stereoscopic), with an optional thin lens
// for depth of field.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/voxtrace/voxtrace/pkg/core"
)

// Kind identifies a projection model.
type Kind int

const (
	Pinhole Kind = iota
	Fisheye
	Panoramic
	Stereoscopic
)

// Config describes a camera's placement and lens parameters.
type Config struct {
	Center        core.Vec3
	LookAt        core.Vec3
	Up            core.Vec3
	Width, Height int
	VFov          float64 // vertical field of view, degrees (pinhole/fisheye)
	Aperture      float64 // lens diameter; 0 disables depth of field
	FocusDistance float64
	Projection    Kind
	// EyeSeparation is the interocular distance used by Stereoscopic, in
	// world units; ignored by other projections.
	EyeSeparation float64
}

// Camera generates primary rays for pixel/lens samples.
type Camera struct {
	cfg Config

	origin          core.Vec3
	basisU, basisV, basisW core.Vec3 // right, up, -forward
	viewportWidth, viewportHeight float64
	lensRadius float64
}

// New builds a camera from cfg, precomputing its orthonormal view basis
// with mathgl (mgl64) vector cross products.
func New(cfg Config) *Camera {
	forward := cfg.LookAt.Subtract(cfg.Center).Normalize()
	upVec := mgl64.Vec3{cfg.Up.X, cfg.Up.Y, cfg.Up.Z}
	fwdVec := mgl64.Vec3{forward.X, forward.Y, forward.Z}

	rightVec := fwdVec.Cross(upVec).Normalize()
	trueUpVec := rightVec.Cross(fwdVec).Normalize()

	theta := cfg.VFov * math.Pi / 180
	h := math.Tan(theta / 2)
	aspect := float64(cfg.Width) / float64(cfg.Height)

	viewportHeight := 2 * h * cfg.FocusDistance
	viewportWidth := aspect * viewportHeight

	return &Camera{
		cfg:    cfg,
		origin: cfg.Center,
		basisU: core.NewVec3(rightVec.X(), rightVec.Y(), rightVec.Z()),
		basisV: core.NewVec3(trueUpVec.X(), trueUpVec.Y(), trueUpVec.Z()),
		basisW: forward,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		lensRadius:     cfg.Aperture / 2,
	}
}

// Config returns the camera's placement/lens parameters as given to New,
// letting callers outside this package (e.g. the GPano tagging decision
// in image output) inspect the projection/FoV without duplicating it.
func (c *Camera) Config() Config { return c.cfg }

// ViewRay builds the primary ray through normalized image-plane
// coordinates (u,v) in [0,1]x[0,1], with (0,0) at the top-left, sampling
// the thin lens via sampler when Aperture > 0.
func (c *Camera) ViewRay(u, v float64, sampler core.Sampler) core.Ray {
	switch c.cfg.Projection {
	case Fisheye:
		return c.fisheyeRay(u, v, sampler)
	case Panoramic:
		return c.panoramicRay(u, v, sampler)
	case Stereoscopic:
		return c.stereoscopicRay(u, v, sampler)
	default:
		return c.pinholeRay(u, v, sampler)
	}
}

func (c *Camera) lensOffset(sampler core.Sampler) core.Vec3 {
	if c.lensRadius <= 0 {
		return core.Vec3{}
	}
	d := core.SamplePointInUnitDisk(sampler.Get2D()).Multiply(c.lensRadius)
	return c.basisU.Multiply(d.X).Add(c.basisV.Multiply(d.Y))
}

func (c *Camera) pinholeRay(u, v float64, sampler core.Sampler) core.Ray {
	return c.pinholeRayFrom(c.origin, u, v, sampler)
}

// pinholeRayFrom is pinholeRay with an explicit eye origin, so
// stereoscopicRay can offset the eye without mutating shared camera
// state (the scene lends the camera to workers read-only during a pass).
func (c *Camera) pinholeRayFrom(eye core.Vec3, u, v float64, sampler core.Sampler) core.Ray {
	px := (u - 0.5) * c.viewportWidth
	py := (0.5 - v) * c.viewportHeight

	pointOnPlane := eye.
		Add(c.basisW.Multiply(c.cfg.FocusDistance)).
		Add(c.basisU.Multiply(px)).
		Add(c.basisV.Multiply(py))

	lensOffset := c.lensOffset(sampler)
	origin := eye.Add(lensOffset)
	direction := pointOnPlane.Subtract(origin)
	return core.NewRay(origin, direction)
}

// fisheyeRay maps (u,v) to a direction via an equidistant fisheye
// projection covering VFov degrees across the shorter image dimension.
func (c *Camera) fisheyeRay(u, v float64, sampler core.Sampler) core.Ray {
	nx := 2*u - 1
	ny := 1 - 2*v
	r := math.Hypot(nx, ny)
	maxAngle := c.cfg.VFov * math.Pi / 180 / 2
	if r > 1 {
		r = 1
	}
	theta := r * maxAngle
	var phi float64
	if r > 1e-9 {
		phi = math.Atan2(ny, nx)
	}

	localDir := core.NewVec3(math.Sin(theta)*math.Cos(phi), math.Sin(theta)*math.Sin(phi), math.Cos(theta))
	dir := c.basisU.Multiply(localDir.X).Add(c.basisV.Multiply(localDir.Y)).Add(c.basisW.Multiply(localDir.Z))

	lensOffset := c.lensOffset(sampler)
	return core.NewRay(c.origin.Add(lensOffset), dir)
}

// panoramicRay maps u to [-pi,pi] longitude and v to [-pi/2,pi/2]
// latitude, for a full equirectangular panorama.
func (c *Camera) panoramicRay(u, v float64, sampler core.Sampler) core.Ray {
	lon := (u - 0.5) * 2 * math.Pi
	lat := (0.5 - v) * math.Pi

	localDir := core.NewVec3(math.Cos(lat)*math.Sin(lon), math.Sin(lat), math.Cos(lat)*math.Cos(lon))
	dir := c.basisU.Multiply(localDir.X).Add(c.basisV.Multiply(localDir.Y)).Add(c.basisW.Multiply(localDir.Z))

	lensOffset := c.lensOffset(sampler)
	return core.NewRay(c.origin.Add(lensOffset), dir)
}

// stereoscopicRay renders the left eye for u<0.5 and the right eye for
// u>=0.5 of a side-by-side frame, offsetting the origin along basisU by
// half EyeSeparation in each direction.
func (c *Camera) stereoscopicRay(u, v float64, sampler core.Sampler) core.Ray {
	half := c.cfg.EyeSeparation / 2
	eyeOffset := c.basisU.Multiply(-half)
	localU := u * 2
	if u >= 0.5 {
		eyeOffset = c.basisU.Multiply(half)
		localU = (u - 0.5) * 2
	}

	return c.pinholeRayFrom(c.origin.Add(eyeOffset), localU, v, sampler)
}
