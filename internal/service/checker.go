// Package service holds the business logic between the Steam client, the
// store, and the outer surfaces (the checker CLI and the report API).
//
//	cmd/checker → Checker       → steam.Client + sqlite.DB
//	cmd/server  → ReportService → sqlite.DB
//
// Both services take interfaces, not the concrete client or database, so the
// tests run them against fakes and an in-memory store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/rs/xid"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/config"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
	"github.com/StarterX4/steamlinuxchecker/internal/steam"
)

// SteamAPI is the part of Steam the checker depends on.
// *steam.Client implements it.
type SteamAPI interface {
	ResolveUserID(ctx context.Context, raw string) (int64, error)
	ResolveGroupMembers(ctx context.Context, raw string) ([]int64, error)
	PlayerSummary(ctx context.Context, id int64) (*steam.PlayerSummary, error)
	OwnedGames(ctx context.Context, id int64) ([]steam.OwnedGame, error)
	AppDetails(ctx context.Context, appID int64) (*steam.AppData, error)
}

var _ SteamAPI = (*steam.Client)(nil)

// CheckerOptions are the scan policies.
type CheckerOptions struct {
	// IgnoredApps are skipped entirely: no metadata call, no minutes.
	IgnoredApps map[int64]bool
	// Policy decides which Playtime rows are written.
	Policy config.PlaytimePolicy
	// PersistPrivate stores a zeroed Scan for profiles that hide playtime.
	PersistPrivate bool
}

// Result is the outcome of one user's check.
type Result struct {
	User *model.User
	Scan *model.Scan

	// Playtimes is the number of Playtime rows written.
	Playtimes int
	// Unavailable lists owned apps the store had no listing for.
	Unavailable []int64
	// Ignored counts owned apps on the ignore list.
	Ignored int

	// Private is set when the profile or its game list is hidden. The Scan
	// is zeroed and no per-game work was done.
	Private bool
	// Partial is set when a malformed record stopped the game loop. The
	// Scan holds the totals of the games before it.
	Partial bool
}

// Checker runs the aggregation pipeline.
//
// CONCURRENCY:
// One run at a time. Check, CheckAll, and CheckGroup hold mu for their whole
// duration, so Steam calls never interleave across runs and the limiter's
// spacing stays meaningful.
type Checker struct {
	steam  SteamAPI
	store  model.Store
	opts   CheckerOptions
	logger *slog.Logger

	mu sync.Mutex
}

func NewChecker(api SteamAPI, store model.Store, opts CheckerOptions, logger *slog.Logger) *Checker {
	if opts.Policy == "" {
		opts.Policy = config.SaveAll
	}
	return &Checker{
		steam:  api,
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// Check scans a single user given as a SteamID, vanity name, or profile URL.
func (c *Checker) Check(ctx context.Context, raw string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.check(ctx, raw, c.runLogger())
}

// CheckAll scans users one after another.
//
// ERROR HANDLING:
// A recoverable error (unknown user, hidden profile, ...) is logged and the
// run moves on to the next user. Any other error stops the run and is
// returned together with the results gathered so far.
func (c *Checker) CheckAll(ctx context.Context, raws []string) ([]*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.checkAll(ctx, raws, c.runLogger())
}

// CheckGroup scans every member of a Steam group.
func (c *Checker) CheckGroup(ctx context.Context, raw string) ([]*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.runLogger().With(slog.String("group", raw))
	members, err := c.steam.ResolveGroupMembers(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("resolving group %q: %w", raw, err)
	}
	logger.Info("group resolved", slog.Int("members", len(members)))

	raws := make([]string, len(members))
	for i, id := range members {
		raws[i] = strconv.FormatInt(id, 10)
	}
	return c.checkAll(ctx, raws, logger)
}

func (c *Checker) runLogger() *slog.Logger {
	return c.logger.With(slog.String("run", xid.New().String()))
}

func (c *Checker) checkAll(ctx context.Context, raws []string, logger *slog.Logger) ([]*Result, error) {
	results := make([]*Result, 0, len(raws))
	for _, raw := range raws {
		result, err := c.check(ctx, raw, logger)
		if err != nil {
			if apperror.Recoverable(err) {
				logger.Warn("user skipped",
					slog.String("user", raw),
					slog.String("error", err.Error()),
				)
				continue
			}
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Checker) check(ctx context.Context, raw string, logger *slog.Logger) (*Result, error) {
	// === 1. RESOLVE ===
	// Everything past this point uses the numeric id, never raw.
	id, err := c.steam.ResolveUserID(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("resolving user %q: %w", raw, err)
	}
	logger = logger.With(slog.Int64("steamid", id))

	// === 2. PROFILE ===
	user, err := c.loadUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}

	result := &Result{User: user, Scan: &model.Scan{UserID: id}}
	scan := result.Scan

	// === 3. VISIBILITY GATE ===
	if !user.Public() {
		result.Private = true
		if c.opts.PersistPrivate {
			if err := scan.Save(ctx, c.store); err != nil {
				return nil, fmt.Errorf("saving scan of private user %d: %w", id, err)
			}
		}
		logger.Info("profile is private")
		return result, nil
	}

	// === 4. OPEN THE SCAN ===
	// The zeroed row exists before any Playtime references it.
	if err := scan.Save(ctx, c.store); err != nil {
		return nil, fmt.Errorf("saving scan of user %d: %w", id, err)
	}

	// === 5. OWNED GAMES ===
	games, err := c.steam.OwnedGames(ctx, id)
	if errors.Is(err, apperror.ErrPrivate) {
		result.Private = true
		logger.Info("game details are private")
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing games of user %d: %w", id, err)
	}

	// === 6. PER GAME ===
	for i, owned := range games {
		logger.Debug("game",
			slog.Int("index", i+1),
			slog.Int("of", len(games)),
			slog.String("progress", fmt.Sprintf("%.2f%%", 100*float64(i+1)/float64(len(games)))),
		)

		if owned.AppID != nil && c.opts.IgnoredApps[*owned.AppID] {
			result.Ignored++
			continue
		}

		// A malformed record ends the loop before any store call is spent
		// on it. Rows already written stay; the scan is finalized below
		// with what was counted so far.
		playtime, err := owned.Playtime()
		if err != nil {
			result.Partial = true
			logger.Warn("game loop stopped", slog.String("error", err.Error()))
			break
		}
		appID := playtime.GameID

		if _, err := c.loadGame(ctx, appID); err != nil {
			if errors.Is(err, apperror.ErrUnavailable) {
				result.Unavailable = append(result.Unavailable, appID)
				logger.Debug("app skipped", slog.Int64("appid", appID), slog.String("error", err.Error()))
				continue
			}
			return nil, fmt.Errorf("loading app %d: %w", appID, err)
		}

		playtime.ScanID = scan.ID
		scan.Add(playtime)

		if c.keep(playtime) {
			if err := playtime.Save(ctx, c.store); err != nil {
				return nil, fmt.Errorf("saving playtime of app %d: %w", appID, err)
			}
			result.Playtimes++
		}
	}

	// === 7. FINALIZE ===
	if err := scan.Save(ctx, c.store); err != nil {
		return nil, fmt.Errorf("finalizing scan %d: %w", scan.ID, err)
	}

	logger.Info("user checked",
		slog.Int64("scan", scan.ID),
		slog.Int64("linux", scan.Linux),
		slog.Int64("mac", scan.Mac),
		slog.Int64("windows", scan.Windows),
		slog.Int64("total", scan.Total),
		slog.Int("games", len(games)),
		slog.Int("unavailable", len(result.Unavailable)),
		slog.Bool("partial", result.Partial),
	)
	return result, nil
}

// loadUser reads the stored profile and fetches it from Steam only when it
// has never been fetched.
func (c *Checker) loadUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := (&model.User{ID: id}).Read(ctx, c.store)
	if err != nil {
		return nil, err
	}
	if user.Complete() {
		return user, nil
	}

	summary, err := c.steam.PlayerSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	fetched := summary.User(id)
	if err := fetched.Save(ctx, c.store); err != nil {
		return nil, err
	}
	return fetched, nil
}

// loadGame is loadUser for store metadata.
func (c *Checker) loadGame(ctx context.Context, appID int64) (*model.Game, error) {
	game, err := (&model.Game{ID: appID}).Read(ctx, c.store)
	if err != nil {
		return nil, err
	}
	if game.Complete() {
		return game, nil
	}

	data, err := c.steam.AppDetails(ctx, appID)
	if err != nil {
		return nil, err
	}
	fetched := data.Game(appID)
	if err := fetched.Save(ctx, c.store); err != nil {
		return nil, err
	}
	return fetched, nil
}

// keep applies the playtime policy to one row.
func (c *Checker) keep(p *model.Playtime) bool {
	switch c.opts.Policy {
	case config.SaveNone:
		return false
	case config.SaveNonzeroPlatform:
		return p.PlatformTotal() > 0
	case config.SaveNonzeroTotal:
		return p.Total > 0
	default:
		return true
	}
}
