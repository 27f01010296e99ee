package main

import "productshot/internal/cli"

func main() {
	cli.Execute()
}
