package main

import (
	"os"

	"github.com/sisaku-security/actionvet/internal/cli"
)

func main() {
	cmd := cli.Command{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cmd.Main(os.Args))
}
