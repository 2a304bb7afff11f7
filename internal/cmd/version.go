package cmd

import (
	"fmt"
	"runtime"
)

// Version is stamped by the release build via -ldflags.
var Version = "dev"

// VersionCmd prints the build version and exits.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("buscope %s %s/%s\n", Version, runtime.GOOS, runtime.GOARCH)
	return nil
}
