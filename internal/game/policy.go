package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Hit zone boundaries as fractions of an arrow's travel.
const (
	PerfectZoneStart = 0.95
	PerfectZoneEnd   = 1.0
	GoodZoneStart    = 0.85

	// CleanupPosition is where arrows leave the live collection.
	CleanupPosition = 1.5
)

// Rating grades a hit by timing.
type Rating string

const (
	RatingNone    Rating = ""
	RatingPerfect Rating = "perfect"
	RatingGood    Rating = "good"
	RatingMiss    Rating = "miss"
)

// HitRating grades an arrow position against the hit zones.
func HitRating(position float64) Rating {
	switch {
	case position >= PerfectZoneStart && position <= PerfectZoneEnd:
		return RatingPerfect
	case position >= GoodZoneStart && position < PerfectZoneStart:
		return RatingGood
	default:
		return RatingMiss
	}
}

// BasePoints returns the points for a rating before the combo multiplier.
func BasePoints(r Rating) int {
	switch r {
	case RatingPerfect:
		return 100
	case RatingGood:
		return 50
	default:
		return 0
	}
}

// Multiplier returns the score multiplier for a combo count.
func Multiplier(combo int) int {
	switch {
	case combo >= 50:
		return 4
	case combo >= 25:
		return 3
	case combo >= 10:
		return 2
	default:
		return 1
	}
}

// Difficulty selects travel speed, spawn rate and pattern mix.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty converts a name into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// PatternKind groups patterns by how many arrows they spawn.
type PatternKind string

const (
	Single PatternKind = "single"
	Double PatternKind = "double"
	Triple PatternKind = "triple"
)

// DifficultySettings is one row of the difficulty table.
type DifficultySettings struct {
	// TravelTime is how long an arrow takes from spawn (0) to the hit line (1).
	TravelTime time.Duration
	// SpawnInterval is the minimum gap between spawn attempts.
	SpawnInterval time.Duration
	// Weights are the relative chances of each pattern kind.
	Weights map[PatternKind]float64
}

var difficulties = map[Difficulty]DifficultySettings{
	Easy: {
		TravelTime:    3000 * time.Millisecond,
		SpawnInterval: 2000 * time.Millisecond,
		Weights:       map[PatternKind]float64{Single: 0.7, Double: 0.3, Triple: 0},
	},
	Medium: {
		TravelTime:    2000 * time.Millisecond,
		SpawnInterval: 1500 * time.Millisecond,
		Weights:       map[PatternKind]float64{Single: 0.5, Double: 0.35, Triple: 0.15},
	},
	Hard: {
		TravelTime:    1500 * time.Millisecond,
		SpawnInterval: 1000 * time.Millisecond,
		Weights:       map[PatternKind]float64{Single: 0.3, Double: 0.4, Triple: 0.3},
	},
}

// Settings returns the table row for d. Unknown difficulties get Medium.
func Settings(d Difficulty) DifficultySettings {
	if s, ok := difficulties[d]; ok {
		return s
	}
	return difficulties[Medium]
}

// Note is one arrow of a pattern.
type Note struct {
	Lane   Lane
	Offset time.Duration
}

// Pattern is a group of arrows spawned together with fixed relative timing.
type Pattern struct {
	Kind  PatternKind
	Notes []Note
}

var patterns = map[PatternKind][]Pattern{
	Single: {
		{Kind: Single, Notes: []Note{{Lane: LaneLeft}}},
		{Kind: Single, Notes: []Note{{Lane: LaneCenter}}},
		{Kind: Single, Notes: []Note{{Lane: LaneRight}}},
	},
	Double: {
		doublePattern(LaneLeft, LaneRight),
		doublePattern(LaneRight, LaneLeft),
		doublePattern(LaneLeft, LaneCenter),
		doublePattern(LaneCenter, LaneRight),
		doublePattern(LaneRight, LaneCenter),
		doublePattern(LaneCenter, LaneLeft),
	},
	Triple: {
		triplePattern(LaneLeft, LaneCenter, LaneRight),
		triplePattern(LaneRight, LaneCenter, LaneLeft),
	},
}

func doublePattern(a, b Lane) Pattern {
	return Pattern{Kind: Double, Notes: []Note{
		{Lane: a},
		{Lane: b, Offset: 200 * time.Millisecond},
	}}
}

func triplePattern(a, b, c Lane) Pattern {
	return Pattern{Kind: Triple, Notes: []Note{
		{Lane: a},
		{Lane: b, Offset: 300 * time.Millisecond},
		{Lane: c, Offset: 600 * time.Millisecond},
	}}
}

// Patterns returns the variants of a pattern kind.
func Patterns(kind PatternKind) []Pattern {
	return patterns[kind]
}

var kindOrder = []PatternKind{Single, Double, Triple}

// PickPattern selects a pattern kind by the difficulty's weights, then a
// variant of that kind uniformly.
func PickPattern(rng *rand.Rand, d Difficulty) Pattern {
	weights := Settings(d).Weights

	var total float64
	for _, k := range kindOrder {
		total += weights[k]
	}

	kind := Single
	if total > 0 {
		r := rng.Float64() * total
		for _, k := range kindOrder {
			w := weights[k]
			if w <= 0 {
				continue
			}
			if r < w {
				kind = k
				break
			}
			r -= w
			kind = k
		}
	}

	variants := patterns[kind]
	return variants[rng.Intn(len(variants))]
}
