package threat

import "sync/atomic"

// LayerKind names one of the fields in a LayerSet.
type LayerKind int

const (
	LayerAir LayerKind = iota
	LayerSurface
	LayerAmphibious
	LayerCloak
	LayerShield
	LayerInfluence // enemy influence
	LayerCount
)

func (k LayerKind) String() string {
	switch k {
	case LayerAir:
		return "air"
	case LayerSurface:
		return "surface"
	case LayerAmphibious:
		return "amphibious"
	case LayerCloak:
		return "cloak"
	case LayerShield:
		return "shield"
	case LayerInfluence:
		return "influence"
	default:
		return "unknown"
	}
}

// ParseLayerKind is the inverse of String.
func ParseLayerKind(s string) (LayerKind, bool) {
	for k := LayerAir; k < LayerCount; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// LayerSet is one buffer of the double-buffered field. Cells are indexed
// z*width + x.
type LayerSet struct {
	width, height int
	layers        [LayerCount][]float32

	// readers counts queries currently pinned to this set. A compute cycle
	// does not start writing until it drops to zero.
	readers atomic.Int32
}

func newLayerSet(width, height int) *LayerSet {
	s := &LayerSet{width: width, height: height}
	for i := range s.layers {
		s.layers[i] = make([]float32, width*height)
	}
	return s
}

func (s *LayerSet) layer(k LayerKind) []float32 { return s.layers[k] }

func (s *LayerSet) clear(kinds ...LayerKind) {
	for _, k := range kinds {
		clear(s.layers[k])
	}
}
