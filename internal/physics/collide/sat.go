// Package collide resolves overlaps between convex meshes with the
// separating axis test: bodies against tile layers and against each other,
// and rect or line probes against the world.
package collide

import (
	"math"

	"chosenoffset.com/lumen2d/internal/core/geom"
)

// Overlap tests two convex meshes. The axes are the normals of a, then the
// normals of b. Intervals must overlap strictly, so touching meshes do not
// collide. On overlap it returns the minimum translation vector: the axis
// with the least depth scaled by that depth. Its sign is arbitrary; see
// Orient.
func Overlap(a, b *geom.Mesh) (geom.Vec2, bool) {
	if a.Len() == 0 || b.Len() == 0 {
		return geom.Vec2{}, false
	}

	best := math.Inf(1)
	var mtv geom.Vec2
	for _, m := range [2]*geom.Mesh{a, b} {
		for _, axis := range m.Normals {
			if axis == (geom.Vec2{}) {
				continue
			}
			minA, maxA := a.Project(axis)
			minB, maxB := b.Project(axis)
			if maxA <= minB || maxB <= minA {
				return geom.Vec2{}, false
			}
			depth := min(maxA-minB, maxB-minA)
			if depth < best {
				best = depth
				mtv = axis.Mul(depth)
			}
		}
	}
	if math.IsInf(best, 1) {
		return geom.Vec2{}, false
	}
	return mtv, true
}

// Orient returns mtv pointing from the obstacle toward the body, given a
// reference point on each.
func Orient(mtv, body, obstacle geom.Vec2) geom.Vec2 {
	if mtv.Dot(obstacle.Sub(body)) > 0 {
		return mtv.Mul(-1)
	}
	return mtv
}

// resolveAxes merges push into the dominant push acc and returns the part of
// push that should be applied. Per axis, a push against the accumulated
// direction that is not larger is discarded; a larger push replaces it.
func resolveAxes(acc *geom.Vec2, push geom.Vec2) geom.Vec2 {
	for i := 0; i < 2; i++ {
		if acc[i] != 0 && (push[i] < 0) != (acc[i] < 0) && math.Abs(push[i]) <= math.Abs(acc[i]) {
			push[i] = 0
			continue
		}
		if math.Abs(push[i]) > math.Abs(acc[i]) {
			acc[i] = push[i]
		}
	}
	return push
}
