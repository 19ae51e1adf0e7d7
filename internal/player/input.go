package player

import (
	"math"

	"voxelworld/internal/world"
)

// Key names an input key as sent by the client.
type Key string

const (
	KeyForward Key = "w"
	KeyBack    Key = "s"
	KeyLeft    Key = "a"
	KeyRight   Key = "d"
	KeyJump    Key = "space"
	KeySneak   Key = "shift"
	KeyMode    Key = "f"
)

// Hotbar is the fixed list digit keys select from.
var Hotbar = [...]world.BlockType{
	world.Grass,
	world.Stone,
	world.Tree,
	world.Wood,
	world.Dirt,
	world.Coal,
	world.Sand,
	world.Leaf,
}

// HotbarSlot returns the block for digit 1..9. Digits without a hotbar entry
// select grass.
func HotbarSlot(digit int) world.BlockType {
	idx := digit - 1
	if idx < 0 || idx >= len(Hotbar) {
		return world.Grass
	}
	return Hotbar[idx]
}

// digit returns the number for keys "1".."9".
func (k Key) digit() (int, bool) {
	if len(k) != 1 || k[0] < '1' || k[0] > '9' {
		return 0, false
	}
	return int(k[0] - '0'), true
}

const maxPitch = math.Pi/2 - 1e-3

// Press applies a key press. Repeated presses of a held key are ignored, as
// are unknown keys.
func (c *Controller) Press(k Key) {
	if n, ok := k.digit(); ok {
		c.State.Held = HotbarSlot(n)
		return
	}
	if c.held[k] {
		return
	}
	switch k {
	case KeyMode:
		c.resolver.ToggleMode(&c.State)
		c.clearVertical()
		return
	case KeyJump:
		if c.State.Mode == Walking {
			c.resolver.Jump(&c.State)
			return
		}
	case KeySneak:
		if c.State.Mode == Walking {
			return
		}
	case KeyForward, KeyBack, KeyLeft, KeyRight:
	default:
		return
	}
	c.held[k] = true
	c.applyIntent(k, 1)
}

// Release undoes the intent of a held key.
func (c *Controller) Release(k Key) {
	if !c.held[k] {
		return
	}
	delete(c.held, k)
	c.applyIntent(k, -1)
}

func (c *Controller) applyIntent(k Key, sign float64) {
	speed := c.resolver.Params().Speed(c.State.Mode) * sign
	switch k {
	case KeyForward:
		c.State.Velocity[0] += speed
	case KeyBack:
		c.State.Velocity[0] -= speed
	case KeyRight:
		c.State.Velocity[2] += speed
	case KeyLeft:
		c.State.Velocity[2] -= speed
	case KeyJump:
		c.State.Velocity[1] += speed
	case KeySneak:
		c.State.Velocity[1] -= speed
	}
}

// clearVertical forgets held vertical keys after a mode switch, which has
// already zeroed the vertical velocity.
func (c *Controller) clearVertical() {
	delete(c.held, KeyJump)
	delete(c.held, KeySneak)
}

// Look sets the view orientation. Pitch is clamped short of straight up and
// down.
func (c *Controller) Look(yaw, pitch float64) {
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return
	}
	c.State.Yaw = math.Mod(yaw, 2*math.Pi)
	c.State.Pitch = math.Max(-maxPitch, math.Min(maxPitch, pitch))
}
