package model

import "context"

var playtimeMapping = Mapping{
	Table:   "playtimes",
	Columns: []string{"id", "scan_id", "game_id", "linux", "mac", "windows", "total"},
}

// Playtime is one game's contribution to a Scan. Rows are append-only.
type Playtime struct {
	ID      int64 `json:"id"`
	ScanID  int64 `json:"scanId"`
	GameID  int64 `json:"gameId"`
	Linux   int64 `json:"linux"`
	Mac     int64 `json:"mac"`
	Windows int64 `json:"windows"`
	Total   int64 `json:"total"`
}

func (p *Playtime) Mapping() *Mapping { return &playtimeMapping }

func (p *Playtime) Values() []any {
	return []any{p.ID, p.ScanID, p.GameID, p.Linux, p.Mac, p.Windows, p.Total}
}

func (p *Playtime) Targets() []any {
	return []any{&p.ID, &p.ScanID, &p.GameID, &p.Linux, &p.Mac, &p.Windows, &p.Total}
}

func (p *Playtime) Blank() Entity { return &Playtime{} }

func (p *Playtime) SetKey(id int64) { p.ID = id }

// PlatformTotal is the sum of the per-platform minutes.
func (p *Playtime) PlatformTotal() int64 {
	return p.Linux + p.Mac + p.Windows
}

func (p *Playtime) Save(ctx context.Context, s Store) error { return save(ctx, s, p) }

func (p *Playtime) Read(ctx context.Context, s Store) (*Playtime, error) { return read(ctx, s, p) }
