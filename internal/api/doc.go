// Package api provides the HTTP REST API and WebSocket server for Gray
// Logic Dispatch.
//
// Routes (all under /api/v1, bearer JWT required except /health):
//
//	GET  /health
//	GET  /devices                     list registered devices
//	POST /devices                     register a simulated device
//	GET  /devices/{id}
//	POST /devices/{id}/commands       send one command
//	GET  /programs
//	POST /programs/{name}/run         run a program to completion
//	GET  /programs/{name}/executions  execution history
//	GET  /audit                       who did what (admin)
//	GET  /ws?token=...                live events
//
// WebSocket clients subscribe to "device.dispatched" and
// "program.completed".
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
