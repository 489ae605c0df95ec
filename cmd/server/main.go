package main // Entry point package

import "github.com/iliyamo/hotel-reservation/internal/cli"

func main() {
	cli.Execute()
}
