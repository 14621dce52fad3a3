//go:build tools

package qbft

import (
	_ "go.uber.org/mock/mockgen"
)
