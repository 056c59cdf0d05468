// Command catalog manages departments, categories and products on a
// catalog REST service.
package main

import "github.com/mesh-intelligence/catalog/internal/cli"

func main() {
	cli.Execute()
}
