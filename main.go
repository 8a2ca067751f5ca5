package main

import "github.com/rpupo63/showcase-backend/cli"

func main() {
	cli.Execute()
}
