package monitor

// Subpixel is the physical layout of a pixel's colour elements.
type Subpixel int

const (
	SubpixelUnknown Subpixel = iota
	SubpixelNone
	SubpixelHRGB
	SubpixelHBGR
	SubpixelVRGB
	SubpixelVBGR
)

var subpixelNames = [...]string{"unknown", "none", "hrgb", "hbgr", "vrgb", "vbgr"}

func (s Subpixel) String() string {
	if s < 0 || int(s) >= len(subpixelNames) {
		return "unknown"
	}
	return subpixelNames[s]
}

// MarshalText lets yaml and json encoders print the name.
func (s Subpixel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transform is the rotation and reflection applied to a monitor's content.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = [...]string{
	"normal", "90", "180", "270",
	"flipped", "flipped-90", "flipped-180", "flipped-270",
}

func (t Transform) String() string {
	if t < 0 || int(t) >= len(transformNames) {
		return "normal"
	}
	return transformNames[t]
}

// MarshalText lets yaml and json encoders print the name.
func (t Transform) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Swapped reports whether the transform exchanges width and height.
func (t Transform) Swapped() bool {
	switch t {
	case Transform90, Transform270, TransformFlipped90, TransformFlipped270:
		return true
	}
	return false
}
