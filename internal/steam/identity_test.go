package steam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
)

func TestNormalizeUserID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"76561198000000000", "76561198000000000"},
		{"https://steamcommunity.com/profiles/76561198000000000/", "76561198000000000"},
		{"http://www.steamcommunity.com/profiles/76561198000000000", "76561198000000000"},
		{"steamcommunity.com/id/examplevanity/", "examplevanity"},
		{"  examplevanity ", "examplevanity"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUserID(tt.raw))
		})
	}
}

func TestIsSteamID(t *testing.T) {
	assert.True(t, IsSteamID("76561198000000000"))
	assert.False(t, IsSteamID("7656119800000000"), "16 digits")
	assert.False(t, IsSteamID("7656119800000000x"))
	assert.False(t, IsSteamID(""))
}

func TestResolveUserID_NumericNeedsNoCall(t *testing.T) {
	f, client := newFakeSteam(t)

	id, err := client.ResolveUserID(context.Background(), "https://steamcommunity.com/profiles/76561198000000000/")
	require.NoError(t, err)
	assert.Equal(t, int64(76561198000000000), id)
	assert.Empty(t, f.requests())
}

func TestResolveUserID_Vanity(t *testing.T) {
	f, client := newFakeSteam(t)
	f.serve(vanityPath, `{"response":{"steamid":"76561198000000000","success":1}}`)

	id, err := client.ResolveUserID(context.Background(), "https://steamcommunity.com/id/examplevanity/")
	require.NoError(t, err)
	assert.Equal(t, int64(76561198000000000), id)
	require.Len(t, f.requests(), 1)
	assert.Equal(t, "examplevanity", f.requests()[0].URL.Query().Get("vanityurl"))
}

func TestResolveUserID_Errors(t *testing.T) {
	f, client := newFakeSteam(t)
	f.serve(vanityPath, `{"response":{"success":42}}`)

	_, err := client.ResolveUserID(context.Background(), "unknown-vanity")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = client.ResolveUserID(context.Background(), "https://steamcommunity.com/id/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGroupPath(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "linuxgamers", want: "groups/linuxgamers"},
		{raw: "https://steamcommunity.com/groups/linuxgamers/", want: "groups/linuxgamers"},
		{raw: "103582791429521412", want: "gid/103582791429521412"},
		{raw: "steamcommunity.com/gid/103582791429521412", want: "gid/103582791429521412"},
		{raw: "", wantErr: true},
		{raw: "https://steamcommunity.com/groups/", wantErr: true},
		{raw: "groups/a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := GroupPath(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const membersPath = "/groups/linuxgamers/memberslistxml/"

func TestResolveGroupMembers(t *testing.T) {
	f, client := newFakeSteam(t)
	f.serve(membersPath, `<?xml version="1.0" encoding="UTF-8"?>
<memberList>
	<totalPages>2</totalPages>
	<currentPage>1</currentPage>
	<members>
		<steamID64>76561198000000003</steamID64>
		<steamID64>76561198000000001</steamID64>
	</members>
</memberList>`)
	f.serve(membersPath+"?p=2", `<memberList>
	<totalPages>2</totalPages>
	<currentPage>2</currentPage>
	<members>
		<steamID64>76561198000000002</steamID64>
		<steamID64>76561198000000001</steamID64>
	</members>
</memberList>`)

	members, err := client.ResolveGroupMembers(context.Background(), "https://steamcommunity.com/groups/linuxgamers")
	require.NoError(t, err)
	assert.Equal(t, []int64{76561198000000001, 76561198000000002, 76561198000000003}, members)

	requests := f.requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "1", requests[0].URL.Query().Get("p"))
	assert.Equal(t, "2", requests[1].URL.Query().Get("p"))
}

func TestResolveGroupMembers_EmptyIsNotFound(t *testing.T) {
	f, client := newFakeSteam(t)
	f.serve(membersPath, `<response><error><![CDATA[No group could be retrieved for the given URL.]]></error></response>`)

	_, err := client.ResolveGroupMembers(context.Background(), "linuxgamers")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
