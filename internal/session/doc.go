// Package session holds per-user conversational state: a bounded FIFO
// history of turns and the selected persona.
//
// History never survives a restart. The persona choice does, via the
// PrefStore. The system prompt is not part of history; it is synthesized
// from the current persona on every request, so switching personas takes
// effect immediately.
//
// Concurrency: the Manager hands out a per-user lock that callers hold
// across the whole read-infer-mutate cycle, so two concurrent messages from
// the same user cannot interleave history appends. Different users never
// contend.
package session
