// Package download resolves URLs into batches and runs them item by item
// through the extraction engine, reporting progress to the requesting session.
//
// Resolver turns a URL into Metadata using the engine's flat extraction.
// Orchestrator runs one batch: filter, per-item format selection, download
// and a single terminal event. Service keeps track of the batches of every
// connected session and runs each of them on its own goroutine.
package download
