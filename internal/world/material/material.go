// Package material describes how tiles and sprites react to lights. Each
// material carries a Kind; behavior per kind comes from a fixed table so the
// renderer and the shadow caster never switch on concrete types.
package material

import (
	"fmt"
	"image/color"
	"strings"
)

// Kind selects a material's behavior.
type Kind uint8

const (
	// Diffuse surfaces receive light and block it.
	Diffuse Kind = iota
	// Unlit surfaces are drawn at full brightness and ignore lights.
	Unlit
	// Additive surfaces glow; they add to whatever is under them.
	Additive
	// Translucent surfaces receive light but let it through.
	Translucent

	KindCount
)

// Blend is the compositing mode a sink should use for a material.
type Blend uint8

const (
	BlendAlpha Blend = iota
	BlendAdd
)

type behavior struct {
	name        string
	lit         bool
	castsShadow bool
	blend       Blend
}

var behaviors = [KindCount]behavior{
	Diffuse:     {name: "diffuse", lit: true, castsShadow: true, blend: BlendAlpha},
	Unlit:       {name: "unlit", lit: false, castsShadow: true, blend: BlendAlpha},
	Additive:    {name: "additive", lit: false, castsShadow: false, blend: BlendAdd},
	Translucent: {name: "translucent", lit: true, castsShadow: false, blend: BlendAlpha},
}

func (k Kind) String() string {
	if k >= KindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return behaviors[k].name
}

// ParseKind maps a kind name from a map or config file.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Diffuse, nil
	}
	for k := Kind(0); k < KindCount; k++ {
		if behaviors[k].name == s {
			return k, nil
		}
	}
	return Diffuse, fmt.Errorf("unknown material kind %q", s)
}

// Material is shared by every tile or sprite that uses it.
type Material struct {
	Name  string
	Kind  Kind
	Color color.NRGBA
}

// New creates a material of the given kind.
func New(name string, kind Kind, c color.NRGBA) *Material {
	return &Material{Name: name, Kind: kind, Color: c}
}

func (m *Material) behavior() behavior {
	if m == nil || m.Kind >= KindCount {
		return behaviors[Diffuse]
	}
	return behaviors[m.Kind]
}

// Lit reports whether lights contribute to the material. A nil material is
// treated as Diffuse.
func (m *Material) Lit() bool {
	return m.behavior().lit
}

// CastsShadow reports whether geometry using the material occludes lights.
func (m *Material) CastsShadow() bool {
	return m.behavior().castsShadow
}

// Blend returns the compositing mode for the material.
func (m *Material) Blend() Blend {
	return m.behavior().blend
}

// ParseColor reads "RRGGBB" or "RRGGBBAA", with or without a leading '#'.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	a := uint8(255)
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q: expected RRGGBB or RRGGBBAA", s)
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
