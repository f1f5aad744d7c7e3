package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBindingsBar(t *testing.T) {
	bindings := []KeyBinding{
		{Key: "enter", Desc: "Play"},
		{Key: "r", Desc: "Retry"},
		{Key: "esc", Desc: "Back"},
	}

	wide := KeyBindingsBar(120, bindings)
	assert.Contains(t, wide, "Play")
	assert.Contains(t, wide, "Back")

	// "enter: Play • r: Retry" is 22 cells, the third binding no longer fits
	narrow := KeyBindingsBar(24, bindings)
	assert.Contains(t, narrow, "Retry")
	assert.NotContains(t, narrow, "Back")

	// The first binding is kept even when nothing else fits
	tight := KeyBindingsBar(12, bindings)
	assert.Contains(t, tight, "enter: Play")
	assert.NotContains(t, tight, "Retry")
}

func TestBanner(t *testing.T) {
	assert.Empty(t, Banner(80, keyStyle, ""))
	assert.Contains(t, Banner(80, keyStyle, "Could not reach the catalog"), "Could not reach the catalog")
}
