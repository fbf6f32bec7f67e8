// Package main is the entry point for cachebench.
package main

func main() {
	Execute()
}
