// Command appium-suite checks an Appium setup and runs the ApiDemos smoke journey.
package main

import "github.com/shane-reaume/appium-suite/pkg/cli"

func main() {
	cli.Execute()
}
