package monitor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// BuildIdentifier derives the stable identifier of a display.
//
// When the hardware can be told apart (make and model together, or a serial)
// the identifier hashes make, model and serial; otherwise it hashes the
// connector. Displays without programmed EDID serials that share make and
// model collide, and there is nothing better to hash for them.
func BuildIdentifier(manufacturer, model, serial, connector string) string {
	h := sha1.New()
	if (manufacturer != "" && model != "") || serial != "" {
		h.Write([]byte(manufacturer))
		h.Write([]byte(model))
		h.Write([]byte(serial))
	} else {
		h.Write([]byte(connector))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildDescription formats "<make> <model> <serial> (<connector>)", leaving
// out whatever is missing. With no hardware data it is just the connector.
func BuildDescription(manufacturer, model, serial, connector string) string {
	parts := nonEmpty(manufacturer, model, serial)
	if len(parts) == 0 {
		return connector
	}
	return strings.Join(parts, " ") + " (" + connector + ")"
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
