package main

import "github.com/oshokin/marker-alerts/cmd/marker-alerts/cmd"

func main() {
	cmd.Execute()
}
