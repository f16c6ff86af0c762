// Package server is the reference orbit-server: an HTTP service that speaks
// the same wire protocol the chat client consumes.
//
// # Endpoints
//
//	POST   /v1/chat                          SSE stream of {"response","done"} records, then [DONE]
//	GET    /admin/chat-history/{session_id}  recent turns, ?limit=N
//	DELETE /admin/chat-history/{session_id}  clear a session (API key required)
//	POST   /api/files/upload                 multipart "file" field
//	GET    /api/files                        files owned by the caller
//	GET    /api/files/{file_id}
//	DELETE /api/files/{file_id}
//	POST   /api/threads                      {message_id, session_id}
//	GET    /api/threads/{thread_id}
//	DELETE /api/threads/{thread_id}
//	GET    /admin/api-keys                   admin JWT
//	POST   /admin/api-keys                   admin JWT, returns the key once
//	DELETE /admin/api-keys/{prefix}          admin JWT
//	GET    /health, /health/ready
//
// # Middleware
//
// Every request is logged. API routes then pass through API key
// authentication, the per-caller rate limiter (when limits are configured),
// and the X-Request-ID replay guard, in that order.
//
// # Replies
//
// A Responder turns a Prompt into a channel of text chunks. The default
// EchoResponder repeats the user's message, which is enough to exercise
// streaming, persistence, and cancellation end to end.
package server
