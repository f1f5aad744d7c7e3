package models

// View represents a specific UI view in the application
type View string

// Available views in the application
const (
	ViewCatalog      View = "catalog"
	ViewAnimeDetails View = "anime-detail"
	ViewPlayer       View = "player"
	ViewLoading      View = "loading"
	ViewHelp         View = "help"
	ViewMenu         View = "menu"
)
