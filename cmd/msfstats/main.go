package main

import (
	"os"

	"github.com/pbarry-r7/metasploit-stats/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
