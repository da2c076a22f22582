// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Holds one WebSocket connection to the geometry source
//   - Runs a single event loop for open, message, error, close, and timer events
//   - Reconnects on a fixed interval, with exactly one retry timer while disconnected
//   - Hands every received message to a Handler, in arrival order
package connection
