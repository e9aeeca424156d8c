package tilemap

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/world/material"
)

// EmptyTile marks an empty cell in a layer row.
const EmptyTile = "."

// MapData is the on-disk map description. JSON map files load as well since
// YAML is a superset of JSON.
type MapData struct {
	Name        string                  `yaml:"name" json:"name"`
	Width       int                     `yaml:"width" json:"width"`
	Height      int                     `yaml:"height" json:"height"`
	TileSize    float64                 `yaml:"tile_size" json:"tile_size"`
	PlayerSpawn SpawnPoint              `yaml:"player_spawn" json:"player_spawn"`
	Materials   map[string]MaterialData `yaml:"materials" json:"materials"`
	Tileset     []TileDataFile          `yaml:"tileset" json:"tileset"`
	Layers      []LayerData             `yaml:"layers" json:"layers"`
	Lights      []LightData             `yaml:"lights" json:"lights"`
	Props       []PropData              `yaml:"props" json:"props"`
}

// SpawnPoint defines a player spawn location in world units.
type SpawnPoint struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// MaterialData describes a shared material.
type MaterialData struct {
	Kind  string `yaml:"kind" json:"kind"`
	Color string `yaml:"color" json:"color"`
}

// TileDataFile describes one tileset entry.
type TileDataFile struct {
	Name       string                 `yaml:"name" json:"name"`
	Material   string                 `yaml:"material" json:"material"`
	Collision  Collision              `yaml:"collision" json:"collision"`
	Properties map[string]interface{} `yaml:"properties" json:"properties"`
}

// Collision is either the scalar "box" / "none" or a list of [x, y] points
// in tile-local coordinates forming a convex polygon.
type Collision struct {
	Box    bool
	Points [][]float64
}

// UnmarshalYAML accepts both collision forms.
func (c *Collision) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "box", "solid":
			c.Box = true
		case "", "none":
		default:
			return fmt.Errorf("line %d: unknown collision %q", node.Line, s)
		}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&c.Points)
	default:
		return fmt.Errorf("line %d: collision must be a name or a point list", node.Line)
	}
}

// LayerData describes one layer. Tiles is indexed [y][x]; entries are
// tileset names with an optional "@rotation" suffix, or "." for empty.
type LayerData struct {
	Name    string     `yaml:"name" json:"name"`
	Collide bool       `yaml:"collide" json:"collide"`
	Shadows bool       `yaml:"shadows" json:"shadows"`
	Tiles   [][]string `yaml:"tiles" json:"tiles"`
}

// LightData describes a light placed in the map.
type LightData struct {
	X              float64 `yaml:"x" json:"x"`
	Y              float64 `yaml:"y" json:"y"`
	Near           float64 `yaml:"near" json:"near"`
	Radius         float64 `yaml:"radius" json:"radius"`
	Color          string  `yaml:"color" json:"color"`
	Intensity      float64 `yaml:"intensity" json:"intensity"`
	Shadows        *bool   `yaml:"shadows" json:"shadows"`
	AffectMaterial *bool   `yaml:"affect_material" json:"affect_material"`
}

// PropData places a free standing object centered on (X, Y).
type PropData struct {
	Name     string  `yaml:"name" json:"name"`
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	W        float64 `yaml:"w" json:"w"`
	H        float64 `yaml:"h" json:"h"`
	Material string  `yaml:"material" json:"material"`
	Solid    bool    `yaml:"solid" json:"solid"`
}

// Load reads and builds a map file.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load map file %s: %w", path, err)
	}
	return m, nil
}

// Decode parses a map description from r and builds it.
func Decode(r io.Reader) (*Map, error) {
	var data MapData
	if err := yaml.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse map: %w", err)
	}
	return Build(&data)
}

// Build validates data and turns it into a Map.
func Build(data *MapData) (*Map, error) {
	if err := validateMapData(data); err != nil {
		return nil, fmt.Errorf("invalid map data: %w", err)
	}

	m := New(data.Name, data.Width, data.Height, data.TileSize)
	m.PlayerSpawn = geom.V(data.PlayerSpawn.X, data.PlayerSpawn.Y)

	materials := make(map[string]*material.Material, len(data.Materials))
	for name, md := range data.Materials {
		kind, err := material.ParseKind(md.Kind)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", name, err)
		}
		c := defaultMaterialColor
		if md.Color != "" {
			if c, err = material.ParseColor(md.Color); err != nil {
				return nil, fmt.Errorf("material %s: %w", name, err)
			}
		}
		materials[name] = material.New(name, kind, c)
	}

	for _, td := range data.Tileset {
		d, err := buildTileData(td, materials, data.TileSize)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", td.Name, err)
		}
		m.AddTileData(d)
	}

	for _, ld := range data.Layers {
		l := m.AddLayer(ld.Name)
		l.Collide = ld.Collide
		l.CastShadows = ld.Shadows
		for y, row := range ld.Tiles {
			for x, token := range row {
				t, err := m.parseTile(token)
				if err != nil {
					return nil, fmt.Errorf("layer %s at (%d, %d): %w", ld.Name, x, y, err)
				}
				l.Set(x, y, t)
			}
		}
	}

	for _, ld := range data.Lights {
		def := LightDef{
			Position:       geom.V(ld.X, ld.Y),
			NearRadius:     ld.Near,
			FarRadius:      ld.Radius,
			Color:          ld.Color,
			Intensity:      ld.Intensity,
			CastShadows:    true,
			AffectMaterial: true,
		}
		if def.Intensity == 0 {
			def.Intensity = 1
		}
		if ld.Shadows != nil {
			def.CastShadows = *ld.Shadows
		}
		if ld.AffectMaterial != nil {
			def.AffectMaterial = *ld.AffectMaterial
		}
		m.Lights = append(m.Lights, def)
	}

	for _, pd := range data.Props {
		def := PropDef{
			Name:     pd.Name,
			Position: geom.V(pd.X, pd.Y),
			Size:     geom.V(pd.W, pd.H),
			Solid:    pd.Solid,
		}
		if pd.Material != "" {
			mat, ok := materials[pd.Material]
			if !ok {
				return nil, fmt.Errorf("prop %s: unknown material %q", pd.Name, pd.Material)
			}
			def.Material = mat
		}
		m.Props = append(m.Props, def)
	}

	return m, nil
}

var defaultMaterialColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func buildTileData(td TileDataFile, materials map[string]*material.Material, size float64) (*TileData, error) {
	d := &TileData{Name: td.Name, Properties: td.Properties}
	if td.Material != "" {
		mat, ok := materials[td.Material]
		if !ok {
			return nil, fmt.Errorf("unknown material %q", td.Material)
		}
		d.Material = mat
	}

	switch {
	case td.Collision.Box:
		d.Shape = geom.NewBoxShape(size)
	case len(td.Collision.Points) > 0:
		pts := make([]geom.Vec2, 0, len(td.Collision.Points))
		for _, p := range td.Collision.Points {
			if len(p) != 2 {
				return nil, fmt.Errorf("collision point %v must have two coordinates", p)
			}
			pts = append(pts, geom.V(p[0], p[1]))
		}
		mesh := geom.NewMesh(pts...)
		if !mesh.Convex() {
			return nil, fmt.Errorf("collision polygon is not convex")
		}
		d.Shape = geom.NewShape(mesh, size)
	}
	return d, nil
}

func (m *Map) parseTile(token string) (*Tile, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == EmptyTile {
		return nil, nil
	}
	name, rot := token, geom.Rot0
	if i := strings.LastIndexByte(token, '@'); i >= 0 {
		name = token[:i]
		r, ok := geom.ParseRotation(token[i+1:])
		if !ok {
			return nil, fmt.Errorf("unknown rotation in %q", token)
		}
		rot = r
	}
	d, ok := m.Tileset[name]
	if !ok {
		return nil, fmt.Errorf("tile not found in tileset: %s", name)
	}
	return &Tile{Data: d, Rotation: rot}, nil
}

// validateMapData checks if the map data is valid
func validateMapData(data *MapData) error {
	if data.Width <= 0 || data.Height <= 0 {
		return fmt.Errorf("invalid map dimensions: %dx%d", data.Width, data.Height)
	}

	if data.TileSize <= 0 {
		return fmt.Errorf("invalid tile size: %v", data.TileSize)
	}

	seen := make(map[string]bool, len(data.Tileset))
	for _, td := range data.Tileset {
		if td.Name == "" || td.Name == EmptyTile || strings.Contains(td.Name, "@") {
			return fmt.Errorf("invalid tile name %q", td.Name)
		}
		if seen[td.Name] {
			return fmt.Errorf("duplicate tile name %q", td.Name)
		}
		seen[td.Name] = true
	}

	for _, p := range data.Props {
		if p.W <= 0 || p.H <= 0 {
			return fmt.Errorf("prop %s: invalid size %vx%v", p.Name, p.W, p.H)
		}
	}

	for _, layer := range data.Layers {
		if len(layer.Tiles) != data.Height {
			return fmt.Errorf("layer %s: tiles array height mismatch: expected %d, got %d", layer.Name, data.Height, len(layer.Tiles))
		}
		for y, row := range layer.Tiles {
			if len(row) != data.Width {
				return fmt.Errorf("layer %s: tiles array width mismatch at row %d: expected %d, got %d", layer.Name, y, data.Width, len(row))
			}
		}
	}

	return nil
}
