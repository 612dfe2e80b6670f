package model

import "context"

var scanMapping = Mapping{
	Table:   "scans",
	Columns: []string{"id", "user_id", "linux", "mac", "windows", "total"},
}

// Scan is one aggregation run's snapshot of a user's playtime, in minutes.
//
// A Scan is inserted zeroed when the run starts and saved once more when the
// run finishes, which writes the accumulated totals. Its per-platform totals
// equal the sums of its Playtime rows.
type Scan struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"userId"`
	Linux   int64 `json:"linux"`
	Mac     int64 `json:"mac"`
	Windows int64 `json:"windows"`
	Total   int64 `json:"total"`
	Timestamps
}

func (s *Scan) Mapping() *Mapping { return &scanMapping }

func (s *Scan) Values() []any {
	return []any{s.ID, s.UserID, s.Linux, s.Mac, s.Windows, s.Total}
}

func (s *Scan) Targets() []any {
	return []any{&s.ID, &s.UserID, &s.Linux, &s.Mac, &s.Windows, &s.Total}
}

func (s *Scan) Blank() Entity { return &Scan{} }

func (s *Scan) SetKey(id int64) { s.ID = id }

// Add accumulates one game's contribution.
func (s *Scan) Add(p *Playtime) {
	s.Linux += p.Linux
	s.Mac += p.Mac
	s.Windows += p.Windows
	s.Total += p.Total
}

// PlatformTotal is the sum of the per-platform minutes. It can differ from
// Total, which Steam reports independently.
func (s *Scan) PlatformTotal() int64 {
	return s.Linux + s.Mac + s.Windows
}

// Score is the share of platform minutes spent on Linux, or 0 when no
// platform minutes were recorded.
func (s *Scan) Score() float64 {
	platform := s.PlatformTotal()
	if platform == 0 {
		return 0
	}
	return float64(s.Linux) / float64(platform)
}

func (s *Scan) Save(ctx context.Context, st Store) error { return save(ctx, st, s) }

func (s *Scan) Read(ctx context.Context, st Store) (*Scan, error) { return read(ctx, st, s) }
