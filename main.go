package main

import "workflowdesk/internal/cli"

func main() {
	cli.Execute()
}
