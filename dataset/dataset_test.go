package dataset

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rushteam/playrec/core"
)

func TestReadInteractions(t *testing.T) {
	in := `151603712,"The Elder Scrolls V Skyrim",purchase,1.0,0
151603712,"The Elder Scrolls V Skyrim",play,273.0,0
59945701,"Dota 2",play,0.5,0
`
	got, err := ReadInteractions(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadInteractions() error = %v", err)
	}
	want := []core.InteractionRecord{
		{UserID: "151603712", ItemID: "The Elder Scrolls V Skyrim", Action: core.ActionPurchase, Amount: 1},
		{UserID: "151603712", ItemID: "The Elder Scrolls V Skyrim", Action: core.ActionPlay, Amount: 273},
		{UserID: "59945701", ItemID: "Dota 2", Action: core.ActionPlay, Amount: 0.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadInteractions() = %+v, want %+v", got, want)
	}
}

func TestReadInteractionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few columns", "u1,Dota 2,play\n"},
		{"bad amount", "u1,Dota 2,play,lots,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadInteractions(strings.NewReader(tt.in))
			if !core.IsInvalidInput(err) {
				t.Errorf("ReadInteractions() error = %v, want InvalidInput", err)
			}
			if err != nil && !strings.Contains(err.Error(), "line 1") {
				t.Errorf("error %q should name the line", err)
			}
		})
	}
}

func TestReadCatalog(t *testing.T) {
	in := `appid,name,release_date,developer,publisher,categories,genres,steamspy_tags
10,Counter-Strike,2000-11-01,Valve,Valve,Multi-player;Online Multi-Player,Action,Action;FPS;Multiplayer
70,Half-Life,1998-11-08,Valve,Valve,Single-player; ;Steam Achievements,Action,FPS;Classic
`
	got, err := ReadCatalog(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCatalog() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadCatalog() returned %d profiles, want 2", len(got))
	}
	want := core.ItemProfile{
		ID:         "70",
		Name:       "Half-Life",
		Developer:  "Valve",
		Publisher:  "Valve",
		Categories: []string{"Single-player", "Steam Achievements"},
		Genres:     []string{"Action"},
		Tags:       []string{"FPS", "Classic"},
	}
	if !reflect.DeepEqual(got[1], want) {
		t.Errorf("ReadCatalog()[1] = %+v, want %+v", got[1], want)
	}
}

func TestReadCatalogColumns(t *testing.T) {
	got, err := ReadCatalog(strings.NewReader("Name,Genres\nPortal,Puzzle\n"))
	if err != nil {
		t.Fatalf("ReadCatalog() error = %v", err)
	}
	if want := []core.ItemProfile{{Name: "Portal", Genres: []string{"Puzzle"}}}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReadCatalog() = %+v, want %+v", got, want)
	}

	for _, in := range []string{"", "appid,title\n1,x\n"} {
		if _, err := ReadCatalog(strings.NewReader(in)); !core.IsInvalidInput(err) {
			t.Errorf("ReadCatalog(%q) error = %v, want InvalidInput", in, err)
		}
	}
}
