package main

import (
	"os"

	"github.com/Makepad-fr/phonebook/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
