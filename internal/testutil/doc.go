// Package testutil provides deterministic stand-ins for the engine's seams:
// a fixed clock, a scripted fetcher, an in-memory upstream that answers like
// the BLS API, an in-memory table store and an in-memory ledger.
//
// None of these import the engine, so engine tests can use them.
package testutil
