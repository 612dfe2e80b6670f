package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
)

var t0 = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// newTestDB returns a fresh in-memory database. Each test gets its own, and
// t.Cleanup closes it when the test finishes.
func newTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := New(":memory:", opts...)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustSave(t *testing.T, db *DB, e model.Entity) model.SaveOutcome {
	t.Helper()
	outcome, err := db.Save(context.Background(), e)
	if err != nil {
		t.Fatalf("Save(%T) error = %v", e, err)
	}
	return outcome
}

func testUser() *model.User {
	return &model.User{
		ID:         76561198000000000,
		Persona:    model.Ptr("tux"),
		RealName:   nil,
		ProfileURL: model.Ptr("https://steamcommunity.com/id/examplevanity/"),
		AvatarURL:  model.Ptr("https://avatars.example/tux.jpg"),
		Visibility: model.Ptr(model.VisibilityPublic),
	}
}

func testGame(id int64, name string, linux bool) *model.Game {
	return &model.Game{
		ID:          id,
		Name:        model.Ptr(name),
		ImageURL:    model.Ptr("https://cdn.example/header.jpg"),
		Linux:       model.Ptr(linux),
		Mac:         model.Ptr(false),
		Windows:     model.Ptr(true),
		ReleaseDate: model.Ptr("21 Aug, 2012"),
	}
}

// =========================================================================
// ROUND TRIP
// =========================================================================

func TestSaveRead_RoundTrip(t *testing.T) {
	db := newTestDB(t, WithClock(clockwork.NewFakeClockAt(t0)))
	ctx := context.Background()

	user := testUser()
	game := testGame(730, "Counter-Strike 2", true)
	game.ReleaseDate = nil
	mustSave(t, db, user)
	mustSave(t, db, game)

	scan := &model.Scan{UserID: user.ID, Linux: 10, Mac: 0, Windows: 20, Total: 35}
	mustSave(t, db, scan)
	playtime := &model.Playtime{ScanID: scan.ID, GameID: game.ID, Linux: 10, Windows: 20, Total: 35}
	mustSave(t, db, playtime)

	for _, saved := range []model.Entity{user, game, scan, playtime} {
		found, err := db.Read(ctx, saved)
		if err != nil {
			t.Fatalf("Read(%T) error = %v", saved, err)
		}
		if !reflect.DeepEqual(found, saved) {
			t.Errorf("Read(%T) = %+v, want %+v", saved, found, saved)
		}
	}
}

func TestRead_ReturnsNewInstance(t *testing.T) {
	db := newTestDB(t)
	mustSave(t, db, testUser())

	lookup := &model.User{ID: testUser().ID}
	found, err := db.Read(context.Background(), lookup)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if found == model.Entity(lookup) {
		t.Fatal("Read() returned the caller's instance")
	}
	if lookup.Persona != nil {
		t.Error("Read() mutated the caller's instance")
	}
	if got := *found.(*model.User).Persona; got != "tux" {
		t.Errorf("Persona = %q, want %q", got, "tux")
	}
}

func TestRead_UnsetKeyIsNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Read(context.Background(), &model.Scan{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestRead_MissingRowIsNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Read(context.Background(), &model.Game{ID: 999})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPSERT TABLES
// =========================================================================

func TestSave_NewUserIsInsertedWithTimestamps(t *testing.T) {
	db := newTestDB(t, WithClock(clockwork.NewFakeClockAt(t0)))
	user := testUser()

	if got := mustSave(t, db, user); got != model.Inserted {
		t.Errorf("Save() outcome = %v, want inserted", got)
	}
	if user.ID != 76561198000000000 {
		t.Errorf("Save() changed the external ID to %d", user.ID)
	}
	if !user.Created.Equal(t0) || !user.Updated.Equal(t0) {
		t.Errorf("timestamps = %v / %v, want %v", user.Created, user.Updated, t0)
	}
}

func TestSave_UnchangedIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	db := newTestDB(t, WithClock(clock))
	mustSave(t, db, testUser())

	clock.Advance(time.Hour)
	again := testUser()
	if got := mustSave(t, db, again); got != model.Unchanged {
		t.Errorf("second Save() outcome = %v, want unchanged", got)
	}

	found, err := db.Read(context.Background(), again)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if updated := found.(*model.User).Updated; !updated.Equal(t0) {
		t.Errorf("updated = %v, want it left at %v", updated, t0)
	}
	if !again.Updated.Equal(t0) {
		t.Errorf("caller's Updated = %v, want stored %v", again.Updated, t0)
	}
}

func TestSave_OneChangedFieldIsUpdated(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	db := newTestDB(t, WithClock(clock))
	mustSave(t, db, testUser())

	clock.Advance(time.Hour)
	renamed := testUser()
	renamed.Persona = model.Ptr("penguin")
	if got := mustSave(t, db, renamed); got != model.Updated {
		t.Fatalf("Save() outcome = %v, want updated", got)
	}

	found, err := db.Read(context.Background(), &model.User{ID: renamed.ID})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	u := found.(*model.User)
	if *u.Persona != "penguin" {
		t.Errorf("Persona = %q, want %q", *u.Persona, "penguin")
	}
	if *u.ProfileURL != *testUser().ProfileURL {
		t.Errorf("ProfileURL changed to %q", *u.ProfileURL)
	}
	if !u.Created.Equal(t0) {
		t.Errorf("created = %v, want %v", u.Created, t0)
	}
	if want := t0.Add(time.Hour); !u.Updated.Equal(want) {
		t.Errorf("updated = %v, want %v", u.Updated, want)
	}
}

func TestSave_GameBackfill(t *testing.T) {
	db := newTestDB(t)

	// A game first seen without metadata...
	mustSave(t, db, &model.Game{ID: 10})
	// ...is completed later.
	full := testGame(10, "Counter-Strike", true)
	if got := mustSave(t, db, full); got != model.Updated {
		t.Fatalf("Save() outcome = %v, want updated", got)
	}

	found, err := (&model.Game{ID: 10}).Read(context.Background(), db)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !found.Complete() || *found.Name != "Counter-Strike" || !*found.Linux {
		t.Errorf("game after backfill = %+v", found)
	}
}

// =========================================================================
// VALUE ENCODING
// =========================================================================

func TestSave_NilIsStoredAsNull(t *testing.T) {
	db := newTestDB(t)
	mustSave(t, db, testUser()) // RealName is nil

	var isNull bool
	err := db.conn.QueryRow(`SELECT name IS NULL FROM users WHERE id = ?`, testUser().ID).Scan(&isNull)
	if err != nil {
		t.Fatalf("querying name: %v", err)
	}
	if !isNull {
		t.Error("nil RealName was not stored as NULL")
	}
}

func TestSave_BooleansAreStoredAsIntegers(t *testing.T) {
	db := newTestDB(t)
	mustSave(t, db, testGame(70, "Half-Life", true))

	var (
		kind         string
		linux, macOS int
	)
	err := db.conn.QueryRow(
		`SELECT typeof(linux_support), linux_support, mac_support FROM games WHERE id = 70`,
	).Scan(&kind, &linux, &macOS)
	if err != nil {
		t.Fatalf("querying platform flags: %v", err)
	}
	if kind != "integer" || linux != 1 || macOS != 0 {
		t.Errorf("linux_support = %s %d, mac_support = %d; want integer 1 and 0", kind, linux, macOS)
	}
}

func TestBindValue(t *testing.T) {
	var nilString *string
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nil pointer", nilString, nil},
		{"string pointer", model.Ptr("x"), "x"},
		{"empty string stays a string", "", ""},
		{"true", true, int64(1)},
		{"false pointer", model.Ptr(false), int64(0)},
		{"int", 42, int64(42)},
		{"named int", model.VisibilityPublic, int64(3)},
		{"float", 0.5, 0.5},
		{"time", t0, "2026-10-16 09:00:00+00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bindValue(tt.in); got != tt.want {
				t.Errorf("bindValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestChanged(t *testing.T) {
	a := testGame(1, "Portal", true)
	b := testGame(1, "Portal", false)
	b.ReleaseDate = nil

	got := Changed(a, b)
	want := []string{"linux_support", "release_date"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Changed() = %v, want %v", got, want)
	}
	if got := Changed(a, testGame(1, "Portal", true)); len(got) != 0 {
		t.Errorf("Changed() of equal games = %v, want none", got)
	}
}

// =========================================================================
// APPEND-ONLY TABLES
// =========================================================================

func TestSave_PlaytimesAlwaysInsert(t *testing.T) {
	db := newTestDB(t)
	user := testUser()
	mustSave(t, db, user)
	mustSave(t, db, testGame(1, "A", true))
	scan := &model.Scan{UserID: user.ID}
	mustSave(t, db, scan)

	first := &model.Playtime{ScanID: scan.ID, GameID: 1, Linux: 5, Total: 5}
	second := &model.Playtime{ScanID: scan.ID, GameID: 1, Linux: 5, Total: 5}
	mustSave(t, db, first)
	mustSave(t, db, second)

	if first.ID == 0 || second.ID == 0 || first.ID == second.ID {
		t.Errorf("generated ids = %d, %d; want two distinct ids", first.ID, second.ID)
	}
}

func TestSave_ScanFinalizeUpdatesSameRow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	db := newTestDB(t, WithClock(clock))
	user := testUser()
	mustSave(t, db, user)

	scan := &model.Scan{UserID: user.ID}
	if got := mustSave(t, db, scan); got != model.Inserted {
		t.Fatalf("first Save() outcome = %v, want inserted", got)
	}
	id := scan.ID

	clock.Advance(time.Minute)
	scan.Linux, scan.Windows, scan.Total = 60, 30, 95
	if got := mustSave(t, db, scan); got != model.Updated {
		t.Fatalf("finalize Save() outcome = %v, want updated", got)
	}
	if scan.ID != id {
		t.Errorf("finalize changed scan id from %d to %d", id, scan.ID)
	}

	var rows int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&rows); err != nil {
		t.Fatalf("counting scans: %v", err)
	}
	if rows != 1 {
		t.Errorf("scans rows = %d, want 1", rows)
	}

	found, err := scan.Read(context.Background(), db)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if found.Linux != 60 || found.Total != 95 {
		t.Errorf("stored scan = %+v", found)
	}
	if !found.Created.Equal(t0) {
		t.Errorf("created = %v, want the insert time %v", found.Created, t0)
	}
}

func TestSave_PlaytimeNeedsExistingParents(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Save(context.Background(), &model.Playtime{ScanID: 404, GameID: 404, Total: 1})
	if err == nil {
		t.Fatal("Save() of a playtime without scan and game should fail")
	}
}

// =========================================================================
// SCHEMA ERRORS
// =========================================================================

// pair is a test-only entity over a table with a composite primary key, the
// one way a lookup on the first key column can match two rows.
type pair struct {
	ID    int64
	Part  int64
	Label *string
}

var pairMapping = model.Mapping{Table: "pairs", Columns: []string{"id", "part", "label"}}

func (p *pair) Mapping() *model.Mapping { return &pairMapping }
func (p *pair) Values() []any          { return []any{p.ID, p.Part, p.Label} }
func (p *pair) Targets() []any         { return []any{&p.ID, &p.Part, &p.Label} }
func (p *pair) Blank() model.Entity    { return &pair{} }
func (p *pair) SetKey(id int64)        { p.ID = id }

func TestRead_DuplicateKeyIsIntegrityError(t *testing.T) {
	db := newTestDB(t)
	_, err := db.conn.Exec(`
		CREATE TABLE pairs (id INTEGER, part INTEGER, label TEXT, PRIMARY KEY (id, part));
		INSERT INTO pairs VALUES (1, 1, 'a'), (1, 2, 'b');
	`)
	if err != nil {
		t.Fatalf("creating pairs: %v", err)
	}

	_, err = db.Read(context.Background(), &pair{ID: 1})
	if !errors.Is(err, apperror.ErrIntegrity) {
		t.Errorf("Read() error = %v, want ErrIntegrity", err)
	}
}

func TestSave_TableWithoutPrimaryKeyFails(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.conn.Exec(`CREATE TABLE pairs (id INTEGER, part INTEGER, label TEXT)`); err != nil {
		t.Fatalf("creating pairs: %v", err)
	}

	_, err := db.Save(context.Background(), &pair{ID: 1, Part: 1})
	if !errors.Is(err, apperror.ErrIntegrity) {
		t.Errorf("Save() error = %v, want ErrIntegrity", err)
	}
}

func TestSave_MissingColumnFails(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.conn.Exec(`CREATE TABLE pairs (id INTEGER PRIMARY KEY, part INTEGER)`); err != nil {
		t.Fatalf("creating pairs: %v", err)
	}

	_, err := db.Read(context.Background(), &pair{ID: 1})
	if !errors.Is(err, apperror.ErrIntegrity) {
		t.Errorf("Read() error = %v, want ErrIntegrity", err)
	}
}
