package mqtt

import (
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "crestronsim"

// Topics builds the simulator's MQTT topic tree:
//
//	{prefix}/state/{kind}/{id}   retained device state
//	{prefix}/command             raw protocol commands in
//	{prefix}/response            protocol responses out
//	{prefix}/system/status       retained online/offline status (LWT)
type Topics struct {
	Prefix string
}

// NewTopics returns a builder rooted at prefix, trimming stray slashes.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// State returns the retained state topic for one device.
//
// Example: crestronsim/state/zone/2707
func (t Topics) State(kind string, id int) string {
	return t.base() + "/state/" + kind + "/" + strconv.Itoa(id)
}

// AllStates matches every device state topic.
func (t Topics) AllStates() string {
	return t.base() + "/state/+/+"
}

// Command is where raw protocol commands are accepted.
func (t Topics) Command() string {
	return t.base() + "/command"
}

// Response is where responses to relayed commands are published.
func (t Topics) Response() string {
	return t.base() + "/response"
}

// SystemStatus carries the simulator's retained online status and LWT.
func (t Topics) SystemStatus() string {
	return t.base() + "/system/status"
}

// ParseState splits a state topic back into kind and id.
// ok is false when topic does not belong to this tree.
func (t Topics) ParseState(topic string) (kind string, id int, ok bool) {
	rest, found := strings.CutPrefix(topic, t.base()+"/state/")
	if !found {
		return "", 0, false
	}
	kind, idStr, found := strings.Cut(rest, "/")
	if !found || kind == "" || strings.Contains(idStr, "/") {
		return "", 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 0 {
		return "", 0, false
	}
	return kind, id, true
}
