// Package scripts holds the Risor extraction scripts compiled into the
// binary.
package scripts

import "embed"

// FS contains extract/*.risor.
//
//go:embed extract/*.risor
var FS embed.FS
