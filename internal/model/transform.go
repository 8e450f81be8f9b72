package model

import "math"

// Normalize clamps the transform into its documented ranges: opacity
// 0-1, brightness and contrast 0-200, rotation reduced mod 360.
func (t Transform) Normalize() Transform {
	t.Opacity = clamp(t.Opacity, 0, 1)
	t.Brightness = clamp(t.Brightness, 0, 200)
	t.Contrast = clamp(t.Contrast, 0, 200)
	t.Rotation = math.Mod(t.Rotation, 360)
	if t.Rotation < 0 {
		t.Rotation += 360
	}
	return t
}

// Validate reports the first out-of-range field, if any.
func (t Transform) Validate() error {
	switch {
	case t.Opacity < 0 || t.Opacity > 1:
		return NewValidationError("opacity", "must be between 0 and 1")
	case t.Brightness < 0 || t.Brightness > 200:
		return NewValidationError("brightness", "must be between 0 and 200")
	case t.Contrast < 0 || t.Contrast > 200:
		return NewValidationError("contrast", "must be between 0 and 200")
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
