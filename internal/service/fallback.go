package service

import "github.com/PizzaHomicide/anistream/internal/domain"

// SampleCatalog is shown when the catalog cannot be reached so the app is never empty
func SampleCatalog() []*domain.Anime {
	return []*domain.Anime{
		{
			ID:            1,
			Title:         "Cyber Samurai X",
			ImageURL:      "https://picsum.photos/300/450?random=1",
			LargeImageURL: "https://picsum.photos/1200/400?random=10",
			Synopsis:      "In a dystopian future a lone samurai fights corrupt corporations with a laser katana.",
			Score:         9.2,
			Genres:        []string{"Action", "Sci-Fi", "Cyberpunk"},
			Episodes:      24,
			Status:        "Ongoing",
			Year:          2024,
			Type:          "TV",
		},
		{
			ID:            2,
			Title:         "Academy of Magic",
			ImageURL:      "https://picsum.photos/300/450?random=2",
			LargeImageURL: "https://picsum.photos/1200/400?random=11",
			Synopsis:      "A school where magic is technology.  Students compete for the title of Supreme Archmage.",
			Score:         8.5,
			Genres:        []string{"Fantasy", "School", "Comedy"},
			Episodes:      12,
			Status:        "Completed",
			Year:          2023,
			Type:          "TV",
		},
		{
			ID:            3,
			Title:         "Titan Hunters",
			ImageURL:      "https://picsum.photos/300/450?random=3",
			LargeImageURL: "https://picsum.photos/1200/400?random=12",
			Synopsis:      "Humanity lives behind energy walls.  An elite squad heads out to hunt the titans threatening it.",
			Score:         9.8,
			Genres:        []string{"Drama", "Action", "Horror"},
			Episodes:      75,
			Status:        "Completed",
			Year:          2022,
			Type:          "TV",
		},
		{
			ID:            4,
			Title:         "Neon Drift",
			ImageURL:      "https://picsum.photos/300/450?random=4",
			LargeImageURL: "https://picsum.photos/1200/400?random=13",
			Synopsis:      "Illegal street races in a futuristic Tokyo where cars hover and speed is everything.",
			Score:         8.9,
			Genres:        []string{"Sports", "Sci-Fi", "Racing"},
			Episodes:      12,
			Status:        "Ongoing",
			Year:          2025,
			Type:          "TV",
		},
		{
			ID:            5,
			Title:         "Spirit Detective",
			ImageURL:      "https://picsum.photos/300/450?random=5",
			LargeImageURL: "https://picsum.photos/1200/400?random=14",
			Synopsis:      "A boy dies and becomes a spirit detective solving crimes of the underworld.",
			Score:         9.0,
			Genres:        []string{"Supernatural", "Mystery", "Action"},
			Episodes:      112,
			Status:        "Completed",
			Year:          2020,
			Type:          "TV",
		},
	}
}
