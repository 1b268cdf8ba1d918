// Package client implements a UDP test harness for the simulator.
//
// It sends protocol lines, waits a bounded time for each reply and treats
// a timeout as "no response" rather than an error. DefaultSequence is the
// scripted smoke test used by cmd/simclient.
package client
