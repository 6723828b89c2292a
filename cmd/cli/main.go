package main

import (
	"os"

	"s3bridge/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
