// Package cache provides a time-based answer cache so identical prompts
// inside a configurable window are served without repeating the tool call.
package cache
