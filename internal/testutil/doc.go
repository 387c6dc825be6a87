// Package testutil provides fakes shared by the package tests: a scriptable
// function, a counting wrapper and a thread-safe log buffer.
package testutil
