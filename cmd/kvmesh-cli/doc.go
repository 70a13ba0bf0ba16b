// Package main provides the entry point for kvmesh-cli, a small
// interactive client for kvmesh-server.
package main
