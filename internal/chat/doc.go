// Package chat is the session orchestrator: the control-flow glue between
// the chat frontend and everything else.
//
// Per inbound message it awards XP, resolves the user's persona (repairing
// stale ids to the default), builds an inference request from the persona
// prompt plus bounded history, drives the streaming client, cleans the
// reply, and commits both turns to the session - in that order, and only on
// success. Failures map to one of three fixed apology messages; internal
// diagnostics never reach the end user.
//
// Every message that reaches HandleMessage produces exactly one outcome:
// Delivered, Rejected, or (for empty input only) Ignored. There are no
// retries; one inbound message is one attempt.
package chat
