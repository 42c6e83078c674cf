package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/templecode/pkg/app"
)

//go:embed programs
var programs embed.FS

func main() {
	application := app.New(programs)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
