// Package runtimeconfig provides configuration that is read at use time
// instead of at startup, so values such as feature flags can change
// without a restart.
//
// Values come from the process environment first and then from .env files,
// which are re-read on Reload.
package runtimeconfig
