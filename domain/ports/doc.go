// Package ports defines the capability contract a host kernel implements so
// the ACPI interpreter can perform privileged, OS-specific operations.
// The interpreter depends only on these abstractions; each target platform
// supplies exactly one implementation.
package ports
