// Command kernel drives the simulated capability-based microkernel
// core: see the kernel package for the cobra command tree.
package main

import "github.com/sustcore-team/sustcore-sub000/kernel"

func main() {
	kernel.Main()
}
