// Package confloader provides configuration loading for kvmesh.
//
// It uses Koanf to merge configuration from multiple sources with
// priority: Flag > Env > File > Default. A companion Watcher reloads
// on file changes.
package confloader
