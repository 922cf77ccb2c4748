// Package health exposes the engine's readiness over the standard gRPC
// health checking protocol (grpc.health.v1).
//
// The engine service is reported under ServiceName; the overall server
// status ("") follows it.
package health
