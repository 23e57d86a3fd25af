package main

import (
	cmd "github.com/morcos/bitcoin/cmd/estimator"
)

func main() {
	cmd.Execute()
}
