// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"strings"
)

// Color is one of the two edge colors.
//
// The zero value is Blue, so a freshly allocated graph is all Blue.
type Color uint8

const (
	// Blue is written as 0 in checkpoint matrices.
	Blue Color = iota

	// Red is written as 1 in checkpoint matrices.
	Red
)

// Colors lists both colors in detection order.
var Colors = [2]Color{Red, Blue}

// Opposite returns the other color.
func (c Color) Opposite() Color {
	if c == Red {
		return Blue
	}
	return Red
}

// String returns "RED" or "BLUE".
func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Blue:
		return "BLUE"
	default:
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
}

// Bit returns the matrix value for the color: 1 for Red, 0 for Blue.
func (c Color) Bit() uint8 {
	if c == Red {
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses a color name, case-insensitively.
//
// Accepts "red"/"r"/"1" and "blue"/"b"/"0".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "r", "1":
		return Red, nil
	case "blue", "b", "0":
		return Blue, nil
	default:
		return Blue, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
}
