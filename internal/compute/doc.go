// Package compute drives a single external interpreter subprocess (the compute
// engine) over a line-oriented request/response protocol.
//
// The protocol is strictly one statement at a time:
//
//  1. The caller's statement is validated against the single-statement grammar.
//  2. The statement and a sentinel-printing statement are written to stdin.
//  3. Lines are read from the merged stdout/stderr stream until the sentinel
//     echo is seen. Lines starting with an error prefix turn the reply into an
//     EngineError, but reading still continues to the sentinel so the stream
//     stays aligned for the next statement.
//
// A Channel can additionally record a transcript of the statements it sends
// and/or the output it receives (see RecordMode). Operations use this to keep a
// "how was this computed" record without exposing scaffolding statements.
package compute
