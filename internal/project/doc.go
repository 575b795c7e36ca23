// Package project is an in-memory model of the host application's project
// state and the native scripting API over it.
//
// It stands in for the real host when running hostbridge-host standalone
// and in tests. State is not synchronized; all access goes through the
// remote dispatcher, which executes one call at a time.
package project
