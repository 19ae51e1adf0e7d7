package player

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/physics"
)

// Outcome is the wall-slide decision for one blocked side.
type Outcome int

const (
	// Free leaves the displacement unchanged; it points away from or along
	// the wall.
	Free Outcome = iota
	// Slide removes the component into the wall and keeps the tangent.
	Slide
)

func (o Outcome) String() string {
	if o == Slide {
		return "slide"
	}
	return "free"
}

// Decide classifies a horizontal displacement against a blocked side.
func Decide(side physics.Side, disp mgl64.Vec3) Outcome {
	if disp.Dot(side.Normal()) > 0 {
		return Slide
	}
	return Free
}

// Resolve applies the slide rule for every blocked horizontal side. Sides are
// axis aligned, so corners resolve by applying each side in turn.
func Resolve(contacts physics.Contacts, disp mgl64.Vec3) mgl64.Vec3 {
	for _, side := range physics.HorizontalSides {
		if !contacts.Blocked(side) {
			continue
		}
		if Decide(side, disp) == Slide {
			n := side.Normal()
			disp = disp.Sub(n.Mul(disp.Dot(n)))
		}
	}
	return disp
}
