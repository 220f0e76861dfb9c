package main

import (
	"os"

	"github.com/codesift-sec/codesift/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
