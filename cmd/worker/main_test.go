package main

import (
	"testing"

	_ "github.com/parcelhub/parcelhub/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
