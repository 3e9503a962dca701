package main

import "github.com/PolarWolf314/rakau/cmd"

func main() {
	cmd.Execute()
}
