// Package engine implements the conversation engine: the bounded multi-turn
// protocol between the model backend and the tool registry. One call to
// ProcessTurn handles exactly one user input and yields the ordered messages
// produced in response.
//
// Protocol per turn:
//
//  1. Compose the request buffer from history plus the new user message and
//     attach the registry's full catalog.
//  2. Issue Model-Call-1 and walk the response blocks in order.
//  3. Text blocks become assistant messages.
//  4. Each tool_use block is resolved via the registry, executed on the
//     owning session, surfaced as a raw-result message, fed back into the
//     buffer as a synthetic user message and answered by one follow-up
//     model call issued without the catalog.
//
// The one-follow-up cap is a protocol boundary, not an optimization: the
// engine never loops until the model stops requesting tools.
package engine
