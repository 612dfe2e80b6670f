package model

import "context"

var gameMapping = Mapping{
	Table: "games",
	Columns: []string{
		"id", "name", "image_url",
		"linux_support", "mac_support", "windows_support",
		"release_date",
	},
}

// Game is a Steam app. The ID is the Steam appid.
// Rows are created on first encounter and only backfilled afterwards.
type Game struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	ImageURL    *string `json:"imageUrl"`
	Linux       *bool   `json:"linux"`
	Mac         *bool   `json:"mac"`
	Windows     *bool   `json:"windows"`
	ReleaseDate *string `json:"releaseDate"` // as Steam prints it, e.g. "21 Aug, 2012"
	Timestamps
}

func (g *Game) Mapping() *Mapping { return &gameMapping }

func (g *Game) Values() []any {
	return []any{g.ID, g.Name, g.ImageURL, g.Linux, g.Mac, g.Windows, g.ReleaseDate}
}

func (g *Game) Targets() []any {
	return []any{&g.ID, &g.Name, &g.ImageURL, &g.Linux, &g.Mac, &g.Windows, &g.ReleaseDate}
}

func (g *Game) Blank() Entity { return &Game{} }

func (g *Game) SetKey(id int64) { g.ID = id }

// Complete reports whether the metadata has been fetched at least once.
func (g *Game) Complete() bool {
	return g.Name != nil
}

func (g *Game) Save(ctx context.Context, s Store) error { return save(ctx, s, g) }

func (g *Game) Read(ctx context.Context, s Store) (*Game, error) { return read(ctx, s, g) }
