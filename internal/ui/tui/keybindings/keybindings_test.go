package keybindings

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNoDuplicateKeyBindings(t *testing.T) {
	// Check each context individually
	for contextName, bindings := range ContextBindings {
		t.Run(fmt.Sprintf("Context_%s", contextName), func(t *testing.T) {
			keyToAction := make(map[string]Action)

			for _, binding := range bindings {
				// Check primary key
				if existingAction, exists := keyToAction[binding.KeyMap.Primary]; exists {
					t.Errorf("Duplicate key binding '%s' in context '%s': "+
						"first assigned to action '%s', then to '%s'",
						binding.KeyMap.Primary, contextName, existingAction, binding.Action)
				} else {
					keyToAction[binding.KeyMap.Primary] = binding.Action
				}

				// Check secondary key if it exists
				if binding.KeyMap.Secondary != "" {
					if existingAction, exists := keyToAction[binding.KeyMap.Secondary]; exists {
						t.Errorf("Duplicate key binding '%s' in context '%s': "+
							"first assigned to action '%s', then to '%s'",
							binding.KeyMap.Secondary, contextName, existingAction, binding.Action)
					} else {
						keyToAction[binding.KeyMap.Secondary] = binding.Action
					}
				}
			}
		})
	}
}

func TestGetActionByKey(t *testing.T) {
	tests := []struct {
		key     tea.KeyMsg
		context ContextName
		want    Action
	}{
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, ContextTransport, ActionTogglePlayPause},
		{tea.KeyMsg{Type: tea.KeyLeft}, ContextTransport, ActionSeekBackward},
		{tea.KeyMsg{Type: tea.KeyLeft}, ContextEpisodes, ActionMoveLeft},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}}, ContextEpisodes, ActionMoveLeft},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}}, ContextCatalog, ActionPrevTab},
		{tea.KeyMsg{Type: tea.KeyTab}, ContextCatalog, ActionNextTab},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, ContextCatalog, ActionPrevTab},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}, ContextTransport, ActionToggleMute},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}}, ContextEpisodes, ""},
		{tea.KeyMsg{Type: tea.KeyEsc}, ContextGlobal, ActionBack},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetActionByKey(tt.key, tt.context), "%s in %s", tt.key.String(), tt.context)
	}
}

func TestActionKey(t *testing.T) {
	assert.Equal(t, "r", ActionKey(ActionRetry, ContextEpisodes))
	assert.Equal(t, "x", ActionKey(ActionDismissNotice, ContextCatalog))
	assert.Empty(t, ActionKey(ActionRetry, ContextCatalog))
}
