// Package protocol implements the controller's text address grammar.
//
// The simulator speaks a tiny path-style protocol. Every request is a single
// trimmed line matching exactly one of three anchored shapes:
//
//	/zone/<id>/<level>      set a dimmer zone
//	/button/<id>/press      press a keypad button
//	/shade/<id>/<position>  move a shade
//
// Responses are built with ZoneLevel, ButtonFeedback and ShadeLevel:
//
//	/zone/<id>/level/<level>
//	/button/<id>/fb
//	/shade/<id>/level/<position>
//
// Parse never clamps. Values above 65535 pass through unchanged (saturating
// at math.MaxInt64 when the digits would overflow) and bound enforcement is
// left to the dispatch engine. Ids are echoed as sent, minus leading zeros,
// however many digits they carry.
package protocol
