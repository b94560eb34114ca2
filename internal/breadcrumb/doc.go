// Package breadcrumb records a vehicle's travelled path in bounded memory
// so that, if a safe return is triggered, the vehicle can retrace a route
// already known to be clear of the obstacles it avoided on the way out.
//
// Positions are appended to a fixed-capacity path whenever the vehicle has
// moved far enough. Two anytime cleanup passes run in the background under
// strict per-call time budgets: a Ramer-Douglas-Peucker simplifier that
// marks points whose removal barely moves the path, and a loop pruner that
// finds places where the path passes close to itself and everything in
// between can be cut out. A routine cleanup compacts the path
// opportunistically when space runs low; a thorough cleanup applies every
// result once both passes complete, just before the return journey pops
// points off the path in reverse.
//
// Neither pass ever alters the path while running; any mutation of the path
// invalidates and restarts them. All state lives in one Recorder guarded by
// a single mutex, so the step functions may be driven from a lower-priority
// goroutine while the control loop owns resets, updates, and cleanup.
package breadcrumb
