package main

import "github.com/deployment-bingo/bingosync/internal/cli"

func main() {
	cli.Execute()
}
