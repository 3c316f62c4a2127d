// SPDX-License-Identifier: MIT

//go:build !unix

package main

import "context"

// watchToggleSignals waits for ctx; there is no toggle signal on this
// platform.
func watchToggleSignals(ctx context.Context, _ func()) {
	<-ctx.Done()
}
