// Package journal records every datagram the engine handles into SQLite.
//
// The journal is for inspection only. Device state always starts from the
// seed dataset and is never replayed from the journal.
package journal
