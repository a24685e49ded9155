// Package main is the entry point for the Runbox orchestration server.
//
// Runbox accepts untrusted code submissions over a REST API, runs each one in
// an ephemeral Docker sandbox with hard resource limits, collects the runner's
// callback report, and pushes the normalized verdict to a backend service.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
