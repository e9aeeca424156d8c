package geom

// ShadowEdge is one silhouette candidate of a tile mesh. Start and End index
// into the positions of the mesh for the same rotation.
type ShadowEdge struct {
	Mid    Vec2
	Normal Vec2
	Start  int
	End    int
}

// ShadowEdges derives the edge list of m.
func ShadowEdges(m *Mesh) []ShadowEdge {
	n := m.Len()
	if n < 2 {
		return nil
	}
	edges := make([]ShadowEdge, 0, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		edges = append(edges, ShadowEdge{
			Mid:    m.Positions[i].Add(m.Positions[j]).Mul(0.5),
			Normal: m.Normals[i],
			Start:  i,
			End:    j,
		})
	}
	return edges
}

// Shape is the collision geometry of a tile in every rotation. Meshes are in
// tile-local coordinates (origin at the tile's top-left corner) and are
// computed once when the shape is built.
type Shape struct {
	size   float64
	meshes [RotationCount]*Mesh
	edges  [RotationCount][]ShadowEdge
}

// NewShape precomputes the rotated meshes and edge lists of base for a
// square tile of the given size. It returns nil when base has fewer than
// two vertices.
func NewShape(base *Mesh, size float64) *Shape {
	if base.Len() < 2 {
		return nil
	}
	s := &Shape{size: size}
	for r := Rot0; r < RotationCount; r++ {
		m := &Mesh{}
		m.SetRotated(base, r, size)
		s.meshes[r] = m
		s.edges[r] = ShadowEdges(m)
	}
	return s
}

// NewBoxShape returns the shape of a fully solid tile.
func NewBoxShape(size float64) *Shape {
	return NewShape(NewBoxMesh(R(0, 0, size, size)), size)
}

// Mesh returns the tile-local mesh for rotation r.
func (s *Shape) Mesh(r Rotation) *Mesh {
	if s == nil || r >= RotationCount {
		return nil
	}
	return s.meshes[r]
}

// Edges returns the shadow edges for rotation r.
func (s *Shape) Edges(r Rotation) []ShadowEdge {
	if s == nil || r >= RotationCount {
		return nil
	}
	return s.edges[r]
}

// Size returns the tile size the shape was built for.
func (s *Shape) Size() float64 {
	if s == nil {
		return 0
	}
	return s.size
}
