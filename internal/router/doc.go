// Package router decodes raw WebSocket messages into geometry updates and
// applies them to the scene.
//
// The router runs on the connection event loop: one message is decoded and
// applied before the next is read. Bad messages are logged, counted, and
// dropped without touching the scene.
package router
