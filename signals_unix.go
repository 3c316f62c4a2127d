// SPDX-License-Identifier: MIT

//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandcore/frequatuner/internal/log"
)

// watchToggleSignals calls toggle on every SIGUSR1 until ctx is done, so a
// foot switch or script can flip modes without the display.
func watchToggleSignals(ctx context.Context, toggle func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-sigs:
			log.Debugf("SIGUSR1: mode switch requested")
			toggle()
		case <-ctx.Done():
			return
		}
	}
}
