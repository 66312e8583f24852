package valueobjects

import "fmt"

// Color is a side of the board, encoded the way FEN encodes the side to move.
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

func (c Color) IsValid() bool {
	return c == White || c == Black
}

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	return string(c)
}

// ColorPreference is what a player asks for when creating or joining.
type ColorPreference string

const (
	PreferWhite  ColorPreference = "white"
	PreferBlack  ColorPreference = "black"
	PreferRandom ColorPreference = "random"
)

func NewColorPreference(s string) (ColorPreference, error) {
	switch ColorPreference(s) {
	case PreferWhite, PreferBlack, PreferRandom:
		return ColorPreference(s), nil
	case "":
		return PreferRandom, nil
	default:
		return "", fmt.Errorf("invalid color preference: %s", s)
	}
}

// ParseColor accepts "w"/"b" as well as "white"/"black".
func ParseColor(s string) (Color, error) {
	switch s {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return "", fmt.Errorf("invalid color: %s", s)
	}
}
