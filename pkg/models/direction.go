package models

import (
	"fmt"
	"strings"
)

// Direction is the expected traffic heading sent to the backend. Auto lets
// the backend infer the majority direction; the fixed values are degrees.
type Direction string

const (
	DirectionAuto Direction = "auto"
	Direction0    Direction = "0"
	Direction90   Direction = "90"
	Direction180  Direction = "180"
	Direction270  Direction = "270"
)

var directions = []Direction{DirectionAuto, Direction0, Direction90, Direction180, Direction270}

// Directions returns every accepted hint in cycling order.
func Directions() []Direction {
	return append([]Direction(nil), directions...)
}

// ParseDirection accepts the wire values and a few readable aliases.
// An empty string parses as auto.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DirectionAuto, nil
	case "0", "right", "east":
		return Direction0, nil
	case "90", "down", "south":
		return Direction90, nil
	case "180", "left", "west":
		return Direction180, nil
	case "270", "up", "north":
		return Direction270, nil
	}
	return "", fmt.Errorf("invalid direction %q: must be one of auto, 0, 90, 180, 270", s)
}

// String returns the wire value.
func (d Direction) String() string {
	if d == "" {
		return string(DirectionAuto)
	}
	return string(d)
}

// Label is the human readable form used by the live view.
func (d Direction) Label() string {
	switch d {
	case Direction0:
		return "0° (right)"
	case Direction90:
		return "90° (down)"
	case Direction180:
		return "180° (left)"
	case Direction270:
		return "270° (up)"
	default:
		return "auto"
	}
}

// Next cycles through the hints, wrapping back to auto.
func (d Direction) Next() Direction {
	for i, candidate := range directions {
		if candidate == d {
			return directions[(i+1)%len(directions)]
		}
	}
	return DirectionAuto
}
