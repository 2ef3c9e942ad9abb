package main

import (
	"os"

	"deviced/internal/devicectl"
)

func main() { os.Exit(devicectl.Main()) }
