package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

// ControlDoc describes a single key the terminal front-end understands.
type ControlDoc struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Shortcut    string `json:"shortcut,omitempty"`
	Screen      string `json:"screen"`
}

// defaultControlDocs mirrors the key mapping in internal/terminal so spectators and
// tooling can render a legend without parsing the binary's help text.
var defaultControlDocs = []ControlDoc{
	{
		ID:          "mode-two-player",
		Label:       "2 Player",
		Description: "Start a local duel; player two fires from the right.",
		Shortcut:    "1",
		Screen:      "mode_select",
	},
	{
		ID:          "mode-vs-cpu",
		Label:       "Vs CPU",
		Description: "Start a single duel against the CPU.",
		Shortcut:    "2",
		Screen:      "mode_select",
	},
	{
		ID:          "mode-survival",
		Label:       "Survival",
		Description: "Fight consecutive CPU rounds; the CPU gains 100 HP per cleared round.",
		Shortcut:    "3",
		Screen:      "mode_select",
	},
	{
		ID:          "rules",
		Label:       "Rules",
		Description: "Open or close the rules screen.",
		Shortcut:    "R, Esc to close",
		Screen:      "mode_select",
	},
	{
		ID:          "attack-p1",
		Label:       "Player 1 Attack",
		Description: "Fire a shot to the right when the 1.2 s cooldown has elapsed.",
		Shortcut:    "Q / Space / Enter",
		Screen:      "playing",
	},
	{
		ID:          "attack-p2",
		Label:       "Player 2 Attack",
		Description: "Fire a shot to the left. Only available in 2 Player mode.",
		Shortcut:    "E",
		Screen:      "playing",
	},
	{
		ID:          "replay",
		Label:       "Play Again",
		Description: "Answer the game over prompt; N leaves the arena on the farewell message.",
		Shortcut:    "Y / N",
		Screen:      "game_over",
	},
	{
		ID:          "quit",
		Label:       "Quit",
		Description: "Leave the terminal front-end.",
		Shortcut:    "Esc / Ctrl-C",
		Screen:      "any",
	},
}

// registerControlDocEndpoints serves the key legend as JSON.
func registerControlDocEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/api/controls", func(w http.ResponseWriter, r *http.Request) {
		//1.- Work on a copy so concurrent requests never reorder the shared slice.
		docs := append([]ControlDoc(nil), defaultControlDocs...)
		if screen := strings.TrimSpace(r.URL.Query().Get("screen")); screen != "" {
			filtered := docs[:0]
			for _, doc := range docs {
				if doc.Screen == screen || doc.Screen == "any" {
					filtered = append(filtered, doc)
				}
			}
			docs = filtered
		}
		//2.- Group by screen, then label, so the legend is stable.
		sort.SliceStable(docs, func(i, j int) bool {
			if docs[i].Screen != docs[j].Screen {
				return docs[i].Screen < docs[j].Screen
			}
			return strings.Compare(docs[i].Label, docs[j].Label) < 0
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(docs); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
