package player

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelworld/internal/physics"
)

func contactsFromMask(mask int) physics.Contacts {
	return physics.Contacts{
		Front: mask&1 != 0,
		Back:  mask&2 != 0,
		Left:  mask&4 != 0,
		Right: mask&8 != 0,
	}
}

func TestDecideTable(t *testing.T) {
	tests := []struct {
		side physics.Side
		disp mgl64.Vec3
		want Outcome
	}{
		{physics.Front, mgl64.Vec3{1, 0, 0}, Slide},
		{physics.Front, mgl64.Vec3{-1, 0, 0}, Free},
		{physics.Front, mgl64.Vec3{0, 0, 1}, Free},
		{physics.Back, mgl64.Vec3{-1, 0, 1}, Slide},
		{physics.Left, mgl64.Vec3{0, 0, -1}, Slide},
		{physics.Left, mgl64.Vec3{0, 0, 1}, Free},
		{physics.Right, mgl64.Vec3{1, 0, 0.5}, Slide},
		{physics.Right, mgl64.Vec3{1, 0, -0.5}, Free},
	}
	for _, tt := range tests {
		if got := Decide(tt.side, tt.disp); got != tt.want {
			t.Fatalf("Decide(%s, %v) = %s, want %s", tt.side, tt.disp, got, tt.want)
		}
	}
}

func TestWallSlideInvariant(t *testing.T) {
	const eps = 1e-9
	speeds := []float64{-5.612, 0, 5.612}
	for mask := 1; mask < 16; mask++ {
		contacts := contactsFromMask(mask)
		for step := 0; step < 48; step++ {
			yaw := float64(step) * math.Pi / 24
			for _, vx := range speeds {
				for _, vz := range speeds {
					disp := Forward(yaw).Mul(vx).Add(RightOf(yaw).Mul(vz))
					got := Resolve(contacts, disp)

					if got.Y() != 0 {
						t.Fatalf("vertical component introduced: %v", got)
					}
					for _, side := range physics.HorizontalSides {
						if !contacts.Blocked(side) {
							continue
						}
						if proj := got.Dot(side.Normal()); proj > eps {
							t.Fatalf("mask=%04b yaw=%.3f v=(%v,%v): moved %v into %s wall", mask, yaw, vx, vz, proj, side)
						}
					}
					// Motion along every unblocked axis is preserved.
					if !contacts.Front && !contacts.Back && math.Abs(got.X()-disp.X()) > eps {
						t.Fatalf("x changed without an x wall: %v -> %v", disp, got)
					}
					if !contacts.Left && !contacts.Right && math.Abs(got.Z()-disp.Z()) > eps {
						t.Fatalf("z changed without a z wall: %v -> %v", disp, got)
					}
				}
			}
		}
	}
}

func TestFreeMotionAwayFromWall(t *testing.T) {
	disp := mgl64.Vec3{-2, 0, 1}
	got := Resolve(physics.Contacts{Front: true}, disp)
	if got != disp {
		t.Fatalf("moving away from the wall changed displacement: %v", got)
	}
}
