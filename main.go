package main

import "github.com/KaramelBytes/trendteller/cmd"

func main() {
	cmd.Execute()
}
