package devicectl

import (
	"fmt"
	"os"
)

// Config carries persistent CLI settings resolved from flags and env.
type Config struct {
	Addr   string
	LogLvl string
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, non-zero on error).
func MainWithArgs(args []string) int {
	cfg := &Config{
		Addr:   envStr("DEVICED_ADDR", ""),
		LogLvl: envStr("DEVICECTL_LOG_LEVEL", "info"),
	}
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code (0 for success, non-zero on error) for use by cmd/devicectl.
func Main() int { return MainWithArgs(os.Args[1:]) }
