// Package server exposes a session backend over HTTP+JSON.
//
// Routes (all JSON):
//
//	GET    /                      health: {name, version, status}
//	GET    /api/v1/stack          current snapshot
//	POST   /api/v1/stack          push {"value": n}, 201 on success
//	DELETE /api/v1/stack          clear, {"message": ...}
//	POST   /api/v1/op/{name}      apply an operation
//	GET    /api/v1/operations     operation catalog
//	GET    /api/v1/stack/watch    websocket stream of snapshots
//
// Calculation errors are returned as {detail, kind} with status 400, or 404
// for UnknownOperation. Malformed request bodies get 422 with kind
// ValidationError. Anything else is a 500 with kind Internal, and the caller
// cannot know whether the mutation happened.
package server
