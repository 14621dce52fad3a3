// Qbft runs QBFT consensus instances in a simulated group of operators.
package main

import "github.com/relab/qbft/internal/cli"

func main() {
	cli.Execute()
}
