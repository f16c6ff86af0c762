// Package chat is a client for the streaming chat protocol.
//
// # Streaming
//
// StreamChat posts one user message to {APIURL}/v1/chat and returns an
// iter.Seq2 that yields the reply as it arrives:
//
//	client, err := chat.New(chat.Config{APIURL: "http://localhost:3000", APIKey: key})
//	if err != nil {
//		return err
//	}
//	for resp, err := range client.StreamChat(ctx, "Hello") {
//		if err != nil {
//			return err
//		}
//		fmt.Print(resp.Text)
//	}
//
// Records split across network reads are reassembled, and a malformed
// record is skipped without ending the stream. Breaking out of the loop
// closes the connection.
//
// # Errors
//
// Construction failures are *ConfigurationError. Failures to reach the
// server are *TransportError and keep the underlying message. A non-2xx
// status is *ProtocolError. No call is retried.
//
// # Optional operations
//
// History, file, and thread operations are gated by the client's
// CapabilitySet. Calling one the server does not support returns an
// *UnsupportedOperationError before any request is sent.
//
// # Shared client
//
// Configure and the package-level StreamChat use one process-wide Client.
// They are meant for small single-session programs and are not isolated
// across concurrent callers.
package chat
