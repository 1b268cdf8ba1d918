package protocol

import "strconv"

// Replies take the id as the Ref of the command they answer, so ids too
// large for an int are echoed unchanged.

// ZoneLevel builds the zone level report.
func ZoneLevel(ref string, level int) string {
	return "/zone/" + ref + "/level/" + strconv.Itoa(level)
}

// ButtonFeedback builds the button feedback report.
func ButtonFeedback(ref string) string {
	return "/button/" + ref + "/fb"
}

// ShadeLevel builds the shade position report.
func ShadeLevel(ref string, position int) string {
	return "/shade/" + ref + "/level/" + strconv.Itoa(position)
}
