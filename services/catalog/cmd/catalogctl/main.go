package main

import "github.com/example/app-catalog/services/catalog/internal/cli"

func main() {
	cli.Execute()
}
