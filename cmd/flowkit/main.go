// Command flowkit runs declarative flows and resolves project
// dependencies.
package main

func main() {
	Execute()
}
