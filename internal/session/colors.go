package session

// Static colour tables for chart rendering. Team names follow the timing
// feed's free-text spelling; lookups on unknown names return ok=false so the
// renderer can fall back to its automatic palette.

var teamColors = map[string]string{
	"Red Bull Racing": "#3671C6",
	"Mercedes":        "#27F4D2",
	"Ferrari":         "#E8002D",
	"McLaren":         "#FF8000",
	"Alpine":          "#FF87BC",
	"Aston Martin":    "#229971",
	"RB":              "#6692FF",
	"Haas F1 Team":    "#B6BABD",
	"Williams":        "#64C4FF",
	"Kick Sauber":     "#52E252",
}

// TeamColor resolves a team name to its hex colour. ok is false when the team
// is not in the static table.
func TeamColor(team string) (color string, ok bool) {
	color, ok = teamColors[team]
	return color, ok
}

// SetTeamColor overrides or adds a team colour table entry. Called at startup
// when the config file carries team_colors; not safe for concurrent use with
// TeamColor.
func SetTeamColor(team, color string) {
	teamColors[team] = color
}

var compoundColors = map[Compound]string{
	CompoundSoft:         "#FF0000",
	CompoundMedium:       "#FFD700",
	CompoundHard:         "#FFFFFF",
	CompoundIntermediate: "#00FF00",
	CompoundWet:          "#0000FF",
	CompoundUnknown:      "#808080",
	CompoundTestUnknown:  "#FF69B4",
}

// CompoundColor returns the hex colour for a tyre compound. Unrecognised
// compounds render grey.
func CompoundColor(c Compound) string {
	if color, ok := compoundColors[c]; ok {
		return color
	}
	return "#808080"
}
