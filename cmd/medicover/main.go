package main

import (
	"medicover-assist/cmd/medicover/commands"
	"medicover-assist/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
