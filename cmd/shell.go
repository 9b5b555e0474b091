// Package cmd provides the small set of utilities the launcher shares:
// a uniform FailOnError/CatchSignals/VersionString surface, so
// cmd/mockrecon/main.go stays a thin wire-up rather than repeating
// signal handling and exit-code conventions.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mockrecon/mockrecon/logging"
)

// FailOnError logs msg and err, then exits 1.
func FailOnError(err error, msg string) {
	if err != nil {
		logging.Get().Err(err, msg)
		fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
		os.Exit(1)
	}
}

var signalToName = map[os.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGHUP:  "SIGHUP",
}

// CatchSignals blocks until SIGTERM, SIGINT or SIGHUP arrives, runs
// callback, then exits 0.
func CatchSignals(callback func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	sig := <-sigChan
	logging.Get().Info(fmt.Sprintf("caught %s", signalToName[sig]))

	if callback != nil {
		callback()
	}

	logging.Get().Info("exiting")
	os.Exit(0)
}

// VersionString produces a friendly version string for the launcher's
// --version flag.
func VersionString() string {
	name := "mockrecon"
	if len(os.Args) > 0 {
		name = os.Args[0]
	}
	return fmt.Sprintf("%s (%s)", name, runtime.Version())
}
