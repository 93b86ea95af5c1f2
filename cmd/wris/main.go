package main

import (
	_ "time/tzdata"

	"wris-inventory/cmd/wris/commands"
	"wris-inventory/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
