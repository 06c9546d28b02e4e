// The main package for the vacancy-crawler executable.
package main

import "github.com/JakeFAU/vacancy-crawler/cmd"

func main() {
	cmd.Execute()
}
