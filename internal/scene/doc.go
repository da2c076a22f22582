// Package scene applies geometry updates to renderables held by a rendering
// engine.
//
// The engine itself (rasterization, camera, lights, picking) lives behind the
// Engine interface. The Applier owns the only mesh handle and the current set
// of polyline handles, and replaces them as updates arrive.
package scene
