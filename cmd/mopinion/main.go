package main

import (
	"os"

	"github.com/mopinion/mopinion-go/internal/command"
)

func main() {
	os.Exit(command.Main(os.Args))
}
