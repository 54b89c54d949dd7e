// Package dict owns the marker identifier dictionaries: the binary code
// families that square fiducial markers encode and the rotation-invariant
// matching used to decode them.
//
// Dependency rule: dict has no inward dependencies on the detector or
// pose packages. No image code is allowed in this package.
package dict

import (
	"fmt"
	"math/bits"
	"math/rand"
	"sync"
)

// Family selects one of the predefined dictionary families. The integer
// values are the selector ids accepted at the detection boundary.
type Family int

const (
	Family4x4_50 Family = iota
	Family4x4_100
	Family4x4_250
	Family4x4_1000
	Family5x5_50
	Family5x5_100
	Family5x5_250
	Family5x5_1000
	Family6x6_50
	Family6x6_100
	Family6x6_250
	Family6x6_1000
	Family7x7_50
	Family7x7_100
	Family7x7_250
	Family7x7_1000
)

// familySpec describes the shape of one predefined family.
type familySpec struct {
	name     string
	gridSize int // bits per marker side
	words    int // number of identifiers
}

var familySpecs = [...]familySpec{
	Family4x4_50:   {"4x4_50", 4, 50},
	Family4x4_100:  {"4x4_100", 4, 100},
	Family4x4_250:  {"4x4_250", 4, 250},
	Family4x4_1000: {"4x4_1000", 4, 1000},
	Family5x5_50:   {"5x5_50", 5, 50},
	Family5x5_100:  {"5x5_100", 5, 100},
	Family5x5_250:  {"5x5_250", 5, 250},
	Family5x5_1000: {"5x5_1000", 5, 1000},
	Family6x6_50:   {"6x6_50", 6, 50},
	Family6x6_100:  {"6x6_100", 6, 100},
	Family6x6_250:  {"6x6_250", 6, 250},
	Family6x6_1000: {"6x6_1000", 6, 1000},
	Family7x7_50:   {"7x7_50", 7, 50},
	Family7x7_100:  {"7x7_100", 7, 100},
	Family7x7_250:  {"7x7_250", 7, 250},
	Family7x7_1000: {"7x7_1000", 7, 1000},
}

// generationPatience is the number of consecutive rejected candidate words
// tolerated before the distance target is relaxed by one bit.
const generationPatience = 2500

// Dictionary is one generated code family. A word is the marker's inner
// bit grid packed row-major, most significant bit first; identifiers are
// indices into the word table. Dictionaries are immutable once built.
type Dictionary struct {
	family   Family
	name     string
	gridSize int
	words    []uint64
	index    map[uint64]int

	// minDistance is the guaranteed minimum Hamming distance between any
	// two words across all relative rotations, and between any word and
	// its own rotations.
	minDistance int
}

var (
	cacheMu sync.Mutex
	cache   = map[Family]*Dictionary{}
)

// Predefined returns the dictionary for a family selector. Tables are
// generated deterministically on first use and cached, so identifiers are
// stable across processes.
func Predefined(f Family) (*Dictionary, error) {
	if f < Family4x4_50 || f > Family7x7_1000 {
		return nil, fmt.Errorf("unknown dictionary family id %d", int(f))
	}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if d, ok := cache[f]; ok {
		return d, nil
	}
	d := generate(f)
	cache[f] = d
	return d, nil
}

// generate builds the word table for a family. Words are drawn from a
// seeded PRNG and accepted greedily while they keep a minimum Hamming
// distance tau to all accepted words (over every relative rotation) and to
// their own rotations; tau is relaxed one bit at a time when the family
// cannot be filled at the current target.
func generate(f Family) *Dictionary {
	spec := familySpecs[f]
	n := spec.gridSize
	nbits := n * n
	mask := uint64(1)<<uint(nbits) - 1

	rng := rand.New(rand.NewSource(int64(f) + 1))

	tau := nbits / 3
	if tau < 1 {
		tau = 1
	}
	minDistance := tau

	words := make([]uint64, 0, spec.words)
	rejects := 0
	for len(words) < spec.words {
		w := rng.Uint64() & mask
		if acceptableWord(w, words, n, tau) {
			words = append(words, w)
			if tau < minDistance {
				minDistance = tau
			}
			rejects = 0
			continue
		}
		rejects++
		if rejects >= generationPatience && tau > 1 {
			tau--
			rejects = 0
		}
	}

	index := make(map[uint64]int, len(words))
	for id, w := range words {
		index[w] = id
	}

	return &Dictionary{
		family:      f,
		name:        spec.name,
		gridSize:    n,
		words:       words,
		index:       index,
		minDistance: minDistance,
	}
}

// acceptableWord reports whether w keeps distance tau to its own rotations
// and to every accepted word over all relative rotations. Rotationally
// symmetric words are always rejected since their orientation cannot be
// recovered.
func acceptableWord(w uint64, accepted []uint64, n, tau int) bool {
	if selfDistance(w, n) < maxInt(tau, 1) {
		return false
	}
	r0 := w
	r1 := Rotate90(r0, n)
	r2 := Rotate90(r1, n)
	r3 := Rotate90(r2, n)
	for _, a := range accepted {
		if hamming(r0, a) < tau || hamming(r1, a) < tau ||
			hamming(r2, a) < tau || hamming(r3, a) < tau {
			return false
		}
	}
	return true
}

// selfDistance is the minimum Hamming distance between a word and its own
// non-identity rotations.
func selfDistance(w uint64, n int) int {
	min := n * n
	r := w
	for k := 0; k < 3; k++ {
		r = Rotate90(r, n)
		if d := hamming(w, r); d < min {
			min = d
		}
	}
	return min
}

func hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Name returns the family name, e.g. "6x6_250".
func (d *Dictionary) Name() string { return d.name }

// Family returns the family selector this dictionary was built for.
func (d *Dictionary) Family() Family { return d.family }

// GridSize returns the number of bits per marker side.
func (d *Dictionary) GridSize() int { return d.gridSize }

// Len returns the number of identifiers in the family.
func (d *Dictionary) Len() int { return len(d.words) }

// MinDistance returns the guaranteed minimum rotation-aware Hamming
// distance between words.
func (d *Dictionary) MinDistance() int { return d.minDistance }

// MaxCorrectionBits returns how many bit errors can be corrected while
// still decoding unambiguously.
func (d *Dictionary) MaxCorrectionBits() int { return (d.minDistance - 1) / 2 }

// Word returns the canonical word for an identifier.
func (d *Dictionary) Word(id int) (uint64, error) {
	if id < 0 || id >= len(d.words) {
		return 0, fmt.Errorf("identifier %d out of range for dictionary %s (0..%d)", id, d.name, len(d.words)-1)
	}
	return d.words[id], nil
}

// Identify matches an observed word against the dictionary, trying all
// four rotations. maxCorrection bounds the Hamming distance accepted for
// a match; pass 0 to require an exact match. The returned rotation is the
// number of quarter turns clockwise that map the canonical word onto the
// observed one.
func (d *Dictionary) Identify(observed uint64, maxCorrection int) (id, rotation int, ok bool) {
	// Exact matches resolve through the index without scanning.
	w := observed
	for rot := 0; rot < 4; rot++ {
		if id, found := d.index[w]; found {
			return id, (4 - rot) % 4, true
		}
		w = Rotate90(w, d.gridSize)
	}
	if maxCorrection <= 0 {
		return 0, 0, false
	}

	bestID, bestRot := -1, 0
	bestDist := maxCorrection + 1
	w = observed
	for rot := 0; rot < 4; rot++ {
		for id, canonical := range d.words {
			if dist := hamming(w, canonical); dist < bestDist {
				bestDist = dist
				bestID = id
				bestRot = (4 - rot) % 4
			}
		}
		w = Rotate90(w, d.gridSize)
	}
	if bestID < 0 {
		return 0, 0, false
	}
	return bestID, bestRot, true
}

// Rotate90 returns the word of an n×n bit grid rotated a quarter turn
// clockwise.
func Rotate90(w uint64, n int) uint64 {
	nbits := n * n
	var out uint64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			// Cell that lands at (r, c) after a clockwise turn.
			src := (n-1-c)*n + r
			if w>>uint(nbits-1-src)&1 == 1 {
				out |= 1 << uint(nbits-1-(r*n+c))
			}
		}
	}
	return out
}

// CellAt reports the bit at row r, column c of an n×n word.
func CellAt(w uint64, n, r, c int) bool {
	return w>>uint(n*n-1-(r*n+c))&1 == 1
}

// WordFromCells packs row-major cell bits into a word, most significant
// bit first.
func WordFromCells(cells []bool) uint64 {
	var w uint64
	for _, set := range cells {
		w <<= 1
		if set {
			w |= 1
		}
	}
	return w
}
