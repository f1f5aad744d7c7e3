package keybindings

import tea "github.com/charmbracelet/bubbletea"

// Action represents a specific action that can be triggered by a key
type Action string

// Define all possible actions
const (
	// Global actions
	ActionQuit       Action = "quit"
	ActionToggleHelp Action = "toggle_help"
	ActionBack       Action = "back" // General purpose "go back" or "cancel"

	// Navigation actions
	ActionMoveUp     Action = "move_up"
	ActionMoveDown   Action = "move_down"
	ActionMoveLeft   Action = "move_left"
	ActionMoveRight  Action = "move_right"
	ActionPageUp     Action = "page_up"
	ActionPageDown   Action = "page_down"
	ActionMoveTop    Action = "move_top"
	ActionMoveBottom Action = "move_bottom"

	// Catalog actions
	ActionOpenAnime        Action = "open_anime"
	ActionViewAnimeDetails Action = "view_anime_details"
	ActionNextTab          Action = "next_tab"
	ActionPrevTab          Action = "prev_tab"
	ActionLoadMore         Action = "load_more"
	ActionToggleFavorite   Action = "toggle_favorite"
	ActionRefreshCatalog   Action = "refresh_catalog"
	ActionDismissNotice    Action = "dismiss_notice"
	ActionClearHistory     Action = "clear_history"

	// Search mode actions
	ActionEnableSearch   Action = "enable_search"
	ActionEnableFilter   Action = "enable_filter"
	ActionSearchComplete Action = "search_complete"

	// Player view actions
	ActionSelectEpisode    Action = "select_episode"
	ActionRetry            Action = "retry"
	ActionFocusPlayer      Action = "focus_player"
	ActionReleaseFocus     Action = "release_focus"
	ActionTogglePlayPause  Action = "toggle_play_pause"
	ActionSeekBackward     Action = "seek_backward"
	ActionSeekForward      Action = "seek_forward"
	ActionToggleMute       Action = "toggle_mute"
	ActionToggleFullscreen Action = "toggle_fullscreen"
	ActionVolumeUp         Action = "volume_up"
	ActionVolumeDown       Action = "volume_down"
	ActionRateUp           Action = "rate_up"
	ActionRateDown         Action = "rate_down"
	ActionChooseRate       Action = "choose_rate"
	ActionSkipSegment      Action = "skip_segment"

	// Menu actions
	ActionSelectMenuItem Action = "select_menu_item"
)

// ContextName represents a specific UI context in the application that has its own keybinds
type ContextName string

const (
	ContextGlobal     ContextName = "global"
	ContextCatalog    ContextName = "catalog"
	ContextSearchMode ContextName = "search_mode"
	ContextEpisodes   ContextName = "episodes"
	ContextTransport  ContextName = "transport"
	ContextDetails    ContextName = "details"
	ContextMenu       ContextName = "menu"
	ContextHelp       ContextName = "help"
)

var ContextBindings = map[ContextName][]Binding{
	ContextGlobal:     globalBindings,
	ContextCatalog:    catalogBindings,
	ContextSearchMode: searchModeBindings,
	ContextEpisodes:   episodesBindings,
	ContextTransport:  transportBindings,
	ContextDetails:    detailsBindings,
	ContextMenu:       menuBindings,
	ContextHelp:       helpBindings,
}

// KeyMap stores the mappings from actions to key sequences for each context
type KeyMap struct {
	Primary   string
	Secondary string // Optional alternative key
	Help      string // Description for help screen
}

// Binding maps an action to its keys and help text
type Binding struct {
	Action Action
	KeyMap KeyMap
}

// navigationBindings contains general navigation bindings for consistent navigation across the app
var navigationBindings = []Binding{
	{
		Action: ActionMoveUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "k",
			Help:      "Move cursor up",
		},
	},
	{
		Action: ActionMoveDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "j",
			Help:      "Move cursor down",
		},
	},
	{
		Action: ActionPageUp,
		KeyMap: KeyMap{
			Primary: "pgup",
			Help:    "Move up one page",
		},
	},
	{
		Action: ActionPageDown,
		KeyMap: KeyMap{
			Primary: "pgdown",
			Help:    "Move down one page",
		},
	},
	{
		Action: ActionMoveTop,
		KeyMap: KeyMap{
			Primary: "home",
			Help:    "Move top of view",
		},
	},
	{
		Action: ActionMoveBottom,
		KeyMap: KeyMap{
			Primary: "end",
			Help:    "Move bottom of view",
		},
	},
}

// globalBindings contains key bindings that work across all views
var globalBindings = []Binding{
	{
		Action: ActionQuit,
		KeyMap: KeyMap{
			Primary: "ctrl+c",
			Help:    "Quit application",
		},
	},
	{
		Action: ActionToggleHelp,
		KeyMap: KeyMap{
			Primary: "ctrl+h",
			Help:    "Toggle help screen",
		},
	},
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Go back/cancel current action",
		},
	},
}

// helpBindings contains key bindings specific to the help view
var helpBindings = withNavigation([]Binding{})

// detailsBindings contains key bindings specific to the anime details view
var detailsBindings = withNavigation([]Binding{
	{
		Action: ActionOpenAnime,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Open episodes",
		},
	},
	{
		Action: ActionToggleFavorite,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Add to or remove from favorites",
		},
	},
})

// catalogBindings contains key bindings specific to the catalog view
var catalogBindings = withNavigation([]Binding{
	{
		Action: ActionOpenAnime,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Open episodes",
		},
	},
	{
		Action: ActionViewAnimeDetails,
		KeyMap: KeyMap{
			Primary: "i",
			Help:    "View anime details",
		},
	},
	{
		Action: ActionNextTab,
		KeyMap: KeyMap{
			Primary:   "tab",
			Secondary: "l",
			Help:      "Next tab",
		},
	},
	{
		Action: ActionPrevTab,
		KeyMap: KeyMap{
			Primary:   "shift+tab",
			Secondary: "h",
			Help:      "Previous tab",
		},
	},
	{
		Action: ActionLoadMore,
		KeyMap: KeyMap{
			Primary: "n",
			Help:    "Load more titles",
		},
	},
	{
		Action: ActionToggleFavorite,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Add to or remove from favorites",
		},
	},
	{
		Action: ActionEnableSearch,
		KeyMap: KeyMap{
			Primary: "ctrl+f",
			Help:    "Search the catalog",
		},
	},
	{
		Action: ActionEnableFilter,
		KeyMap: KeyMap{
			Primary: "/",
			Help:    "Filter the current tab",
		},
	},
	{
		Action: ActionRefreshCatalog,
		KeyMap: KeyMap{
			Primary: "r",
			Help:    "Reload the catalog",
		},
	},
	{
		Action: ActionDismissNotice,
		KeyMap: KeyMap{
			Primary: "x",
			Help:    "Dismiss notice",
		},
	},
	{
		Action: ActionClearHistory,
		KeyMap: KeyMap{
			Primary: "ctrl+x",
			Help:    "Clear watch history",
		},
	},
})

// episodesBindings contains key bindings for the episode grid of the player view
var episodesBindings = withNavigation([]Binding{
	{
		Action: ActionMoveLeft,
		KeyMap: KeyMap{
			Primary:   "left",
			Secondary: "h",
			Help:      "Move cursor left",
		},
	},
	{
		Action: ActionMoveRight,
		KeyMap: KeyMap{
			Primary:   "right",
			Secondary: "l",
			Help:      "Move cursor right",
		},
	},
	{
		Action: ActionSelectEpisode,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Play episode",
		},
	},
	{
		Action: ActionRetry,
		KeyMap: KeyMap{
			Primary: "r",
			Help:    "Retry after an error",
		},
	},
	{
		Action: ActionFocusPlayer,
		KeyMap: KeyMap{
			Primary: "tab",
			Help:    "Give the player focus",
		},
	},
	{
		Action: ActionToggleFavorite,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Add to or remove from favorites",
		},
	},
})

// transportBindings apply while the player holds focus
var transportBindings = []Binding{
	{
		Action: ActionTogglePlayPause,
		KeyMap: KeyMap{
			Primary: " ",
			Help:    "Play/pause",
		},
	},
	{
		Action: ActionSeekBackward,
		KeyMap: KeyMap{
			Primary: "left",
			Help:    "Seek back 10 seconds",
		},
	},
	{
		Action: ActionSeekForward,
		KeyMap: KeyMap{
			Primary: "right",
			Help:    "Seek forward 10 seconds",
		},
	},
	{
		Action: ActionToggleMute,
		KeyMap: KeyMap{
			Primary: "m",
			Help:    "Mute/unmute",
		},
	},
	{
		Action: ActionToggleFullscreen,
		KeyMap: KeyMap{
			Primary: "f",
			Help:    "Toggle fullscreen",
		},
	},
	{
		Action: ActionSkipSegment,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Skip the intro or outro",
		},
	},
	{
		Action: ActionVolumeUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "+",
			Help:      "Volume up",
		},
	},
	{
		Action: ActionVolumeDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "-",
			Help:      "Volume down",
		},
	},
	{
		Action: ActionRateUp,
		KeyMap: KeyMap{
			Primary: "]",
			Help:    "Faster playback",
		},
	},
	{
		Action: ActionRateDown,
		KeyMap: KeyMap{
			Primary: "[",
			Help:    "Slower playback",
		},
	},
	{
		Action: ActionChooseRate,
		KeyMap: KeyMap{
			Primary: "v",
			Help:    "Choose playback speed",
		},
	},
	{
		Action: ActionRetry,
		KeyMap: KeyMap{
			Primary: "r",
			Help:    "Retry after an error",
		},
	},
	{
		Action: ActionReleaseFocus,
		KeyMap: KeyMap{
			Primary: "tab",
			Help:    "Return focus to the episode list",
		},
	},
}

// menuBindings contains key bindings for pick-one menus
var menuBindings = []Binding{
	{
		Action: ActionMoveUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "k",
			Help:      "Move cursor up",
		},
	},
	{
		Action: ActionMoveDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "j",
			Help:      "Move cursor down",
		},
	},
	{
		Action: ActionSelectMenuItem,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Select",
		},
	},
}

// searchModeBindings contains key bindings specific for when search mode is active
var searchModeBindings = []Binding{
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Exit search mode and remove the filter",
		},
	},
	{
		Action: ActionSearchComplete,
		KeyMap: KeyMap{
			Primary: "enter",
			Help:    "Apply the search and return control to the original view",
		},
	},
}

// ActionKey returns the primary key bound to action in a context, or an empty string if it is unbound there
func ActionKey(action Action, name ContextName) string {
	for _, binding := range ContextBindings[name] {
		if binding.Action == action {
			return binding.KeyMap.Primary
		}
	}
	return ""
}

// GetActionByKey returns just the action for a given key, or an empty Action if not found
func GetActionByKey(keyMsg tea.KeyMsg, name ContextName) Action {
	if bindings, exists := ContextBindings[name]; exists {
		key := keyMsg.String()
		for _, binding := range bindings {
			if binding.KeyMap.Primary == key || binding.KeyMap.Secondary == key {
				return binding.Action
			}
		}
	}
	return ""
}

// withNavigation is a helper function to include navigation bindings in other binding sets
func withNavigation(bindings []Binding) []Binding {
	return append(append([]Binding{}, navigationBindings...), bindings...)
}
