// Package publish pushes built graphs to external listeners. The socket.io
// publisher emits one event per build on a connected client.
package publish
