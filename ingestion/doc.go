// Package ingestion turns newly discovered recordings into analysed calls.
//
// The Pipeline owns a single worker. A run scans the recordings folder for
// files the registry has not seen, then processes them one at a time in
// call order:
//   - A Pending recording entry is created (or reused after a crash)
//   - The recording is diarized and every voice is matched to a profile
//   - The recording is marked Done or Failed and the file is marked processed
//
// Only one run may be active at a time; a second trigger is rejected with
// ErrAlreadyAnalysing. Cancellation is honoured between files, never in the
// middle of one. Storage failures abort the run and are reported through
// Run.Wait wrapped in ErrPersistence. Progress is published as Events on a
// buffered channel that never blocks the worker.
package ingestion
