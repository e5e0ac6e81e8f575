// Package main provides the jjalkak command line client.
package main

func main() {
	Execute()
}
