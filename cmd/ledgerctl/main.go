package main

import "github.com/dvloznov/finance-ledger/cmd/ledgerctl/commands"

func main() {
	commands.Execute()
}
