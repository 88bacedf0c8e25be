package main

import "github.com/vaultgen/vaultgen/internal/cli"

func main() {
	cli.Execute()
}
