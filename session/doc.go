// Package session manages the connection to a single tool-providing
// subprocess: launching it from a LaunchSpec, performing the protocol
// handshake over its standard streams, caching the advertised tool catalog
// and routing tool invocations over the channel. Each provider lives in its
// own subprocess so a crash or hang in one cannot corrupt another's state.
//
// Connection failures never escape Connect uncaught; they are captured as
// *ConnectionError result values so the host can isolate them per session.
package session
