package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
	"github.com/StarterX4/steamlinuxchecker/internal/model"
)

// PlayerSummary is one entry of GetPlayerSummaries. Fields Steam omits for
// some profiles (realname, for one) stay nil.
type PlayerSummary struct {
	SteamID     string  `json:"steamid"`
	PersonaName *string `json:"personaname"`
	RealName    *string `json:"realname"`
	ProfileURL  *string `json:"profileurl"`
	AvatarFull  *string `json:"avatarfull"`
	Visibility  *int    `json:"communityvisibilitystate"`
}

// User converts the summary into the stored form.
func (p *PlayerSummary) User(id int64) *model.User {
	u := &model.User{
		ID:         id,
		Persona:    p.PersonaName,
		RealName:   p.RealName,
		ProfileURL: p.ProfileURL,
		AvatarURL:  p.AvatarFull,
	}
	if p.Visibility != nil {
		u.Visibility = model.Ptr(model.Visibility(*p.Visibility))
	}
	return u
}

// OwnedGame is one entry of GetOwnedGames. All playtimes are in minutes.
// A nil field means Steam left it out of the record.
type OwnedGame struct {
	AppID   *int64 `json:"appid"`
	Forever *int64 `json:"playtime_forever"`
	Linux   *int64 `json:"playtime_linux_forever"`
	Mac     *int64 `json:"playtime_mac_forever"`
	Windows *int64 `json:"playtime_windows_forever"`
}

// Playtime returns the record's minutes as an unsaved Playtime, or an
// apperror.ErrMalformed naming the first missing field.
func (g *OwnedGame) Playtime() (*model.Playtime, error) {
	if g.AppID == nil {
		return nil, apperror.Malformed("owned game", "appid")
	}
	resource := fmt.Sprintf("owned game %d", *g.AppID)
	switch {
	case g.Forever == nil:
		return nil, apperror.Malformed(resource, "playtime_forever")
	case g.Linux == nil:
		return nil, apperror.Malformed(resource, "playtime_linux_forever")
	case g.Mac == nil:
		return nil, apperror.Malformed(resource, "playtime_mac_forever")
	case g.Windows == nil:
		return nil, apperror.Malformed(resource, "playtime_windows_forever")
	}
	return &model.Playtime{
		GameID:  *g.AppID,
		Linux:   *g.Linux,
		Mac:     *g.Mac,
		Windows: *g.Windows,
		Total:   *g.Forever,
	}, nil
}

// AppData is the part of a store appdetails entry the checker keeps.
type AppData struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	HeaderImage string `json:"header_image"`
	Platforms   struct {
		Windows bool `json:"windows"`
		Mac     bool `json:"mac"`
		Linux   bool `json:"linux"`
	} `json:"platforms"`
	ReleaseDate struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
}

// Game converts the store data into the stored form.
func (d *AppData) Game(id int64) *model.Game {
	g := &model.Game{
		ID:      id,
		Name:    model.Ptr(d.Name),
		Linux:   model.Ptr(d.Platforms.Linux),
		Mac:     model.Ptr(d.Platforms.Mac),
		Windows: model.Ptr(d.Platforms.Windows),
	}
	if d.HeaderImage != "" {
		g.ImageURL = model.Ptr(d.HeaderImage)
	}
	if d.ReleaseDate.Date != "" {
		g.ReleaseDate = model.Ptr(d.ReleaseDate.Date)
	}
	return g
}

// ResolveVanityURL maps a custom profile name to its SteamID.
// An unknown name is apperror.ErrNotFound.
func (c *Client) ResolveVanityURL(ctx context.Context, vanity string) (int64, error) {
	var resp struct {
		Response struct {
			SteamID string `json:"steamid"`
			Success int    `json:"success"`
		} `json:"response"`
	}
	query := c.keyed(url.Values{"vanityurl": {vanity}})
	if err := c.fetchJSON(ctx, c.apiURL+"/ISteamUser/ResolveVanityURL/v1/", query, &resp); err != nil {
		return 0, err
	}

	// 1 is a match; 42 is "no match".
	if resp.Response.Success != 1 {
		return 0, apperror.NotFound("steam user", vanity)
	}
	id, err := strconv.ParseInt(resp.Response.SteamID, 10, 64)
	if err != nil {
		return 0, apperror.Upstream(fmt.Sprintf("steam: vanity %q resolved to invalid steamid %q", vanity, resp.Response.SteamID))
	}
	return id, nil
}

// PlayerSummaries fetches the public profile of each id in one call.
// Ids Steam does not know are absent from the result.
func (c *Client) PlayerSummaries(ctx context.Context, ids []int64) ([]PlayerSummary, error) {
	steamIDs := make([]string, len(ids))
	for i, id := range ids {
		steamIDs[i] = strconv.FormatInt(id, 10)
	}

	var resp struct {
		Response struct {
			Players []PlayerSummary `json:"players"`
		} `json:"response"`
	}
	query := c.keyed(url.Values{"steamids": {strings.Join(steamIDs, ",")}})
	if err := c.fetchJSON(ctx, c.apiURL+"/ISteamUser/GetPlayerSummaries/v2/", query, &resp); err != nil {
		return nil, err
	}
	return resp.Response.Players, nil
}

// PlayerSummary fetches one profile.
func (c *Client) PlayerSummary(ctx context.Context, id int64) (*PlayerSummary, error) {
	players, err := c.PlayerSummaries(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	want := strconv.FormatInt(id, 10)
	for i := range players {
		if players[i].SteamID == want {
			return &players[i], nil
		}
	}
	return nil, apperror.NotFound("steam user", id)
}

// OwnedGames lists a user's games in Steam's order.
//
// Steam answers an empty "response" object when the game details of the
// profile are hidden; that is apperror.ErrPrivate. A visible profile without
// games reports game_count 0 and yields an empty list.
func (c *Client) OwnedGames(ctx context.Context, id int64) ([]OwnedGame, error) {
	var resp struct {
		Response *struct {
			GameCount *int       `json:"game_count"`
			Games     []OwnedGame `json:"games"`
		} `json:"response"`
	}
	query := c.keyed(url.Values{
		"steamid":                   {strconv.FormatInt(id, 10)},
		"include_played_free_games": {"1"},
	})
	if err := c.fetchJSON(ctx, c.apiURL+"/IPlayerService/GetOwnedGames/v1/", query, &resp); err != nil {
		return nil, err
	}

	r := resp.Response
	switch {
	case r == nil:
		return nil, apperror.Private("game list of", id)
	case r.Games != nil:
		return r.Games, nil
	case r.GameCount != nil && *r.GameCount == 0:
		return []OwnedGame{}, nil
	default:
		return nil, apperror.Private("game list of", id)
	}
}

// AppDetails fetches store metadata for an app. Apps the store has no
// listing for (delisted, region-locked, tools) are apperror.ErrUnavailable.
func (c *Client) AppDetails(ctx context.Context, appID int64) (*AppData, error) {
	var resp map[string]struct {
		Success bool     `json:"success"`
		Data    *AppData `json:"data"`
	}
	key := strconv.FormatInt(appID, 10)
	query := url.Values{
		"appids":  {key},
		"filters": {"basic,platforms,release_date"},
	}
	if err := c.fetchJSON(ctx, c.storeURL+"/api/appdetails/", query, &resp); err != nil {
		return nil, err
	}

	entry, ok := resp[key]
	if !ok || !entry.Success || entry.Data == nil {
		return nil, apperror.Unavailable("app", appID)
	}
	return entry.Data, nil
}

// groupPage fetches one page of a group's member list document.
func (c *Client) groupPage(ctx context.Context, group string, page int) (string, error) {
	query := url.Values{"xml": {"1"}, "p": {strconv.Itoa(page)}}
	return c.fetchPage(ctx, c.communityURL+"/"+group+"/memberslistxml/", query)
}
