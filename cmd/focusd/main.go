package main

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "focusd"

func main() {
	Execute()
}
