// Package entities provides the ABI types shared between the ACPI interpreter
// and the OS services layer: status codes, addresses, sizes, synchronization
// handles, callbacks and the few firmware structures the layer passes through.
//
// Every interpreter-native type is mapped here and nowhere else; see abi.go
// for the full table.
package entities
