// Package testsupport holds fixtures shared by package tests: workspace-backed
// configs and synthetic audio recordings.
package testsupport
