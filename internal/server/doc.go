// Package server provides the simulator's UDP transport adapter.
//
// The server owns the socket and nothing else. It reads one datagram at a
// time, rejects payloads that are not valid UTF-8, hands the text to a
// Handler and sends back whatever the handler returns. A handler that
// returns false produces no packet at all.
//
// The network stack is a pion/transport Net. Production uses the host
// stack (stdnet); tests can bind to a vnet router instead of real sockets.
//
// # Usage
//
//	srv, err := server.New(server.Config{Host: "0.0.0.0", Port: 50000, Logger: log}, eng)
//	if err != nil {
//	    return err
//	}
//	return srv.ListenAndServe(ctx)
package server
