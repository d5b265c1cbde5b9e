// Package testsupport provides shared factories for tests: temp-dir configs
// and opened stores with registered cleanup.
package testsupport
