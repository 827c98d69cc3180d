package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-photos/odyssey-photos/internal/app"
	_ "github.com/odyssey-photos/odyssey-photos/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
	main()
}
