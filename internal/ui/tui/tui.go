package tui

import (
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/service"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits.  Engine snapshots and automatic episode advances are forwarded
// into the program as messages.
func Run(catalog *service.CatalogService, lib *library.Library, episodes *player.EpisodePlayer) error {
	p := tea.NewProgram(models.NewAppModel(catalog, lib, episodes), tea.WithAltScreen())

	// Send blocks until the program reads the message, and subscribers must not block the engine.  Snapshots carry a
	// sequence number so the view can drop any that arrive out of order.
	unsubscribe := episodes.Engine().Subscribe(func(snap player.Snapshot) {
		go p.Send(models.SnapshotMsg{Snapshot: snap})
	})
	defer unsubscribe()

	episodes.OnEpisodeComplete(func(number int) {
		log.Debug("Episode advanced automatically", "episode", number)
		go p.Send(models.EpisodeAdvancedMsg{Number: number})
	})

	_, err := p.Run()
	return err
}
