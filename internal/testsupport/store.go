package testsupport

import (
	"context"
	"testing"

	"showreel/internal/config"
	"showreel/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SampleEpisode returns the Cornell 1977 episode used across tests: three
// segments planning six images, four at the fast tier and two at the
// quality tier.
func SampleEpisode() *store.Episode {
	return &store.Episode{
		ID:       "ep-1977-05-08",
		Title:    "Cornell '77",
		Artist:   "Grateful Dead",
		Venue:    "Barton Hall",
		ShowDate: "1977-05-08",
		Script: store.Script{
			Segments: []store.Segment{
				{
					Title:     "Arrival",
					Narration: "On a cold May night in Ithaca, students lined up outside Barton Hall.",
					Visuals: []store.Visual{
						{Prompt: "Students queueing outside a brick field house at night, 1977", Tier: "fast"},
						{Prompt: "Snow flurries under campus streetlights in May", Tier: "fast"},
					},
				},
				{
					Title:     "The Show",
					Narration: "Inside, the band played a set that tape traders would circulate for decades.",
					Visuals: []store.Visual{
						{Prompt: "Crowded gymnasium floor facing a lit stage, 1970s concert", Tier: "quality"},
						{Prompt: "Reel-to-reel tape deck on a folding table", Tier: "fast"},
					},
				},
				{
					Title:     "Legacy",
					Narration: "The recording became one of the most celebrated live albums ever made.",
					Visuals: []store.Visual{
						{Prompt: "Stack of cassette tapes with handwritten labels", Tier: "fast"},
						{Prompt: "Empty arena at dawn after a concert", Tier: "quality"},
					},
				},
			},
			ThumbnailPrompt: "Glowing stage lights over a packed 1970s college gymnasium",
		},
	}
}

// SeedEpisode saves ep (or SampleEpisode when nil) and returns it.
func SeedEpisode(t testing.TB, st *store.Store, ep *store.Episode) *store.Episode {
	t.Helper()

	if ep == nil {
		ep = SampleEpisode()
	}
	if err := st.SaveEpisode(context.Background(), ep); err != nil {
		t.Fatalf("store.SaveEpisode: %v", err)
	}
	return ep
}
