package steam

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
)

const (
	steamIDLength = 17
	groupIDLength = 18
)

var (
	userPrefixes = []string{
		"https://", "http://", "www.",
		"steamcommunity.com/profiles/", "steamcommunity.com/id/",
	}
	groupPrefixes = []string{
		"https://", "http://", "www.", "steamcommunity.com/",
	}

	memberPattern     = regexp.MustCompile(`steamID64>(\d+)`)
	totalPagesPattern = regexp.MustCompile(`<totalPages>(\d+)</totalPages>`)
)

// NormalizeUserID strips profile URL decoration from raw, leaving either a
// SteamID or a vanity name:
//
//	https://steamcommunity.com/profiles/76561198000000000/ → 76561198000000000
//	steamcommunity.com/id/examplevanity                    → examplevanity
func NormalizeUserID(raw string) string {
	id := strings.TrimSpace(raw)
	for _, prefix := range userPrefixes {
		id = strings.TrimPrefix(id, prefix)
	}
	return strings.ReplaceAll(id, "/", "")
}

// IsSteamID reports whether s is a canonical 17-digit SteamID.
func IsSteamID(s string) bool {
	return len(s) == steamIDLength && allDigits(s)
}

// ResolveUserID turns a SteamID, vanity name, or profile URL into a SteamID.
// Only a vanity name costs a Steam call.
func (c *Client) ResolveUserID(ctx context.Context, raw string) (int64, error) {
	id := NormalizeUserID(raw)
	if id == "" {
		return 0, apperror.ValidationFailed("id", fmt.Sprintf("%q is not a Steam user identifier", raw))
	}
	if IsSteamID(id) {
		return strconv.ParseInt(id, 10, 64)
	}
	return c.ResolveVanityURL(ctx, id)
}

// GroupPath turns a group URL, group name, or 18-digit group id into the
// community path of the group: "groups/<name>" or "gid/<id>".
func GroupPath(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	for _, prefix := range groupPrefixes {
		id = strings.TrimPrefix(id, prefix)
	}

	kind := "groups"
	switch {
	case strings.HasPrefix(id, "groups/"):
		id = strings.TrimPrefix(id, "groups/")
	case strings.HasPrefix(id, "gid/"):
		kind, id = "gid", strings.TrimPrefix(id, "gid/")
	}
	id = strings.Trim(id, "/")

	switch {
	case id == "" || strings.Contains(id, "/"):
		return "", apperror.ValidationFailed("group", fmt.Sprintf("%q is not a Steam group identifier", raw))
	case len(id) == groupIDLength && allDigits(id):
		kind = "gid"
	}
	return kind + "/" + id, nil
}

// ResolveGroupMembers returns the SteamIDs of a group's members in ascending
// numeric order, without duplicates. Every page of the member list is read.
func (c *Client) ResolveGroupMembers(ctx context.Context, raw string) ([]int64, error) {
	group, err := GroupPath(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var members []int64
	for page, pages := 1, 1; page <= pages; page++ {
		doc, err := c.groupPage(ctx, group, page)
		if err != nil {
			return nil, fmt.Errorf("steam: reading members of %s: %w", group, err)
		}

		if m := totalPagesPattern.FindStringSubmatch(doc); m != nil {
			pages, _ = strconv.Atoi(m[1])
		}
		for _, m := range memberPattern.FindAllStringSubmatch(doc, -1) {
			id, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true
			members = append(members, id)
		}
	}

	if len(members) == 0 {
		return nil, apperror.NotFound("steam group", raw)
	}
	slices.Sort(members)
	return members, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
