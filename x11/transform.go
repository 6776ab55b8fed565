package x11

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/render"

	"github.com/FyshOS/screens/monitor"
)

const rotations = randr.RotationRotate0 | randr.RotationRotate90 |
	randr.RotationRotate180 | randr.RotationRotate270

// transform maps a CRTC rotation mask. Only a single rotation, optionally
// with a horizontal reflection, is understood; any other combination
// (vertical reflection, both reflections) is reported as normal.
func transform(rotation uint16) monitor.Transform {
	var base monitor.Transform
	switch rotation & rotations {
	case randr.RotationRotate0:
		base = monitor.TransformNormal
	case randr.RotationRotate90:
		base = monitor.Transform90
	case randr.RotationRotate180:
		base = monitor.Transform180
	case randr.RotationRotate270:
		base = monitor.Transform270
	default:
		return monitor.TransformNormal
	}

	switch rotation &^ rotations {
	case 0:
		return base
	case randr.RotationReflectX:
		return base + monitor.TransformFlipped
	}
	return monitor.TransformNormal
}

func subpixel(order byte) monitor.Subpixel {
	switch order {
	case render.SubPixelHorizontalRGB:
		return monitor.SubpixelHRGB
	case render.SubPixelHorizontalBGR:
		return monitor.SubpixelHBGR
	case render.SubPixelVerticalRGB:
		return monitor.SubpixelVRGB
	case render.SubPixelVerticalBGR:
		return monitor.SubpixelVBGR
	case render.SubPixelNone:
		return monitor.SubpixelNone
	}
	return monitor.SubpixelUnknown
}
