package main

import "github.com/honeynil/AdaPayAcquirer/cmd/adapayctl/cmd"

func main() {
	cmd.Execute()
}
