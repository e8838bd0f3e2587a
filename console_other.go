//go:build !windows && !darwin
// +build !windows,!darwin

package main

func detachConsole(bool) {}
