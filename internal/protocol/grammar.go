package protocol

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/crestron-sim/internal/device"
)

// Command is a recognised request.
//
// Ref is the id as sent, with leading zeros stripped, and is what replies
// echo. ID is its integer form, or NoID when the digits do not fit an int.
// Value holds the requested zone level or shade position and is zero for
// button presses. It has not been clamped.
type Command struct {
	Kind  device.Kind
	ID    int
	Ref   string
	Value int64
}

// NoID marks a Command whose id cannot address any device.
const NoID = -1

// Addressable reports whether the id fits an int and so may name a device.
func (c Command) Addressable() bool {
	return c.ID != NoID
}

// String renders the command in its canonical wire form.
func (c Command) String() string {
	switch c.Kind {
	case device.KindZone:
		return "/zone/" + c.Ref + "/" + strconv.FormatInt(c.Value, 10)
	case device.KindButton:
		return "/button/" + c.Ref + "/press"
	case device.KindShade:
		return "/shade/" + c.Ref + "/" + strconv.FormatInt(c.Value, 10)
	default:
		return ""
	}
}

// Patterns are tried in this order. The literal prefixes make them mutually
// exclusive.
var (
	zonePattern   = regexp.MustCompile(`^/zone/(\d+)/(\d+)$`)
	buttonPattern = regexp.MustCompile(`^/button/(\d+)/press$`)
	shadePattern  = regexp.MustCompile(`^/shade/(\d+)/(\d+)$`)
)

// Parse classifies a request line.
//
// Surrounding whitespace (including the trailing newline many clients send)
// is trimmed before matching. Anything that matches no shape returns
// ErrUnrecognised. An id too large for an int still parses, with ID set to
// NoID.
func Parse(s string) (Command, error) {
	s = strings.TrimSpace(s)

	if m := zonePattern.FindStringSubmatch(s); m != nil {
		return build(device.KindZone, m[1], m[2])
	}
	if m := buttonPattern.FindStringSubmatch(s); m != nil {
		return build(device.KindButton, m[1], "")
	}
	if m := shadePattern.FindStringSubmatch(s); m != nil {
		return build(device.KindShade, m[1], m[2])
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnrecognised, s)
}

func build(kind device.Kind, idDigits, valueDigits string) (Command, error) {
	ref := canonical(idDigits)
	id, err := strconv.Atoi(ref)
	if err != nil {
		id = NoID
	}

	cmd := Command{Kind: kind, ID: id, Ref: ref}
	if valueDigits != "" {
		cmd.Value = parseValue(valueDigits)
	}
	return cmd, nil
}

// canonical strips leading zeros, keeping a lone "0".
func canonical(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// parseValue converts a digit string, saturating at math.MaxInt64.
func parseValue(digits string) int64 {
	v, err := strconv.ParseInt(digits, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt64
	}
	return v
}
