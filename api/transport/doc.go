// Package transport moves interaction messages between environments over
// gRPC. The wire format is the interaction envelope frame rather than
// generated protobuf types; a custom codec hands frames to grpc verbatim,
// which keeps the header timing fields bit-exact across processes.
package transport
