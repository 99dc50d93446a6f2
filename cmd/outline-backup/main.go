// Package main is the entry point for outline-backup.
package main

import "github.com/sharkusmanch/outline-backup/internal/cli"

func main() {
	cli.Execute()
}
