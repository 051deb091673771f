package main

import "github.com/ramiqadoumi/go-prodplan/services/planner/cli"

func main() {
	cli.Execute()
}
