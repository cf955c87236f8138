package main

import "freight-service/internal/cli"

func main() {
	cli.Execute()
}
