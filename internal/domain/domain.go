// Package domain holds contracts and errors shared across layers.
package domain

// KeyPrefix namespaces every key the service writes to Redis.
const KeyPrefix = "cvindex:"
