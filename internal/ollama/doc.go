// Package ollama is the streaming chat client for a local Ollama server.
//
// # Protocol
//
// One POST to /api/chat with {model, messages, stream:true}. The response
// arrives as newline-delimited JSON records; each carries a token fragment
// in either the flat "response" field or the nested "message.content"
// field, and a final record sets done:true. An optional "data: " prefix per
// line (SSE-style framing) is tolerated.
//
// # Decoding
//
// DecodeLine turns one raw line into a tagged Event (token, done, skip, or
// parse error); the client folds events into the full reply. Malformed
// records are logged and skipped, never fatal. A record with done:true
// stops consumption immediately.
//
// # Failure classification
//
// Failures surface as *Error with a Kind: backend_rejected (non-2xx),
// timeout (one deadline covers the whole exchange), connection_failed, or
// empty_response (stream completed with no extracted text). The client
// never retries.
package ollama
