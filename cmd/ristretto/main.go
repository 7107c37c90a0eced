// Command ristretto is the Ristretto JVM's command-line front end: run a
// class file's main method, run the verifier alone and print its
// diagnostic, or disassemble a class's constant pool and bytecode.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
