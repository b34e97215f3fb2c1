package main

import "github.com/redskie/bamaco/internal/cli"

func main() {
	cli.Execute()
}
