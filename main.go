package main

import "github.com/devfolio/portfolio/cmd"

func main() {
	cmd.Execute()
}
