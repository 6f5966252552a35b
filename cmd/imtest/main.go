// Command imtest runs automated GUI tests against the headless demo
// application.
package main

import "github.com/devicelab-dev/imtest/pkg/cli"

func main() {
	cli.Execute()
}
