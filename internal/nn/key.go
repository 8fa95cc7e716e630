package nn

import (
	"strconv"
)

type keyKind uint8

const (
	keyAbsent keyKind = iota
	keyPosition
	keyName
	keySlice
)

// Key addresses layers inside a LayerSet: by position, by name, or by a
// slice of either.
//
// The zero Key is "absent". It is only meaningful as a slice bound, where
// it stands for the start or the end of the set.
//
// Example:
//
//	seq.Item(nn.At(-1))                                     // last layer
//	seq.Item(nn.Named("block4_conv3"))                      // by name
//	seq.Item(nn.Slice(nn.At(0), nn.Named("block4_conv3"))) // inclusive of block4_conv3
type Key struct {
	kind   keyKind
	pos    int
	name   string
	bounds *[2]Key
}

// At returns a position key. Negative positions count from the end.
func At(i int) Key {
	return Key{kind: keyPosition, pos: i}
}

// Named returns a key that selects the layer with the given name.
func Named(name string) Key {
	return Key{kind: keyName, name: name}
}

// Slice returns a range key.
//
// A position stop is exclusive; a named stop is inclusive of that layer.
// Pass Key{} for an open bound.
func Slice(start, stop Key) Key {
	return Key{kind: keySlice, bounds: &[2]Key{start, stop}}
}

// IsZero reports whether k is the absent key.
func (k Key) IsZero() bool {
	return k.kind == keyAbsent
}

// String renders the key the way it would be written as an index.
func (k Key) String() string {
	switch k.kind {
	case keyPosition:
		return strconv.Itoa(k.pos)
	case keyName:
		return strconv.Quote(k.name)
	case keySlice:
		return k.bounds[0].bound() + ":" + k.bounds[1].bound()
	default:
		return "<none>"
	}
}

func (k Key) bound() string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}
