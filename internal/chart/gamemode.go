package chart

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Gamemode is a named chart layout. It primarily determines the keycount.
//
// The set and its string ids mirror the StepsTypes that StepMania ships in
// GameManager.cpp; membership and keycounts are fixed.
type Gamemode uint8

const (
	DanceSingle Gamemode = iota
	DanceDouble
	DanceCouple
	DanceSolo
	DanceThreepanel
	DanceRoutine
	PumpSingle
	PumpHalfdouble
	PumpDouble
	PumpCouple
	PumpRoutine
	Kb7Single
	Ez2Single
	Ez2Double
	Ez2Real
	ParaSingle
	Ds3ddxSingle
	BmSingle5
	BmVersus5
	BmDouble5
	BmSingle7
	BmVersus7
	BmDouble7
	ManiaxSingle
	ManiaxDouble
	TechnoSingle4
	TechnoSingle5
	TechnoSingle8
	TechnoDouble4
	TechnoDouble5
	TechnoDouble8
	PnmFive
	PnmNine
	KickboxHuman
	KickboxQuadarm
	KickboxInsect
	KickboxArachnid
)

var gamemodeInfo = [...]struct {
	id       string
	keyCount int
}{
	DanceSingle:     {"dance-single", 4},
	DanceDouble:     {"dance-double", 8},
	DanceCouple:     {"dance-couple", 8},
	DanceSolo:       {"dance-solo", 6},
	DanceThreepanel: {"dance-threepanel", 3},
	DanceRoutine:    {"dance-routine", 8},
	PumpSingle:      {"pump-single", 5},
	PumpHalfdouble:  {"pump-halfdouble", 6},
	PumpDouble:      {"pump-double", 10},
	PumpCouple:      {"pump-couple", 10},
	PumpRoutine:     {"pump-routine", 10},
	Kb7Single:       {"kb7-single", 7},
	Ez2Single:       {"ez2-single", 5},
	Ez2Double:       {"ez2-double", 10},
	Ez2Real:         {"ez2-real", 7},
	ParaSingle:      {"para-single", 5},
	Ds3ddxSingle:    {"ds3ddx-single", 8},
	BmSingle5:       {"bm-single5", 6},
	BmVersus5:       {"bm-versus5", 6},
	BmDouble5:       {"bm-double5", 12},
	BmSingle7:       {"bm-single7", 8},
	BmVersus7:       {"bm-versus7", 8},
	BmDouble7:       {"bm-double7", 16},
	ManiaxSingle:    {"maniax-single", 4},
	ManiaxDouble:    {"maniax-double", 8},
	TechnoSingle4:   {"techno-single4", 4},
	TechnoSingle5:   {"techno-single5", 5},
	TechnoSingle8:   {"techno-single8", 8},
	TechnoDouble4:   {"techno-double4", 8},
	TechnoDouble5:   {"techno-double5", 10},
	TechnoDouble8:   {"techno-double8", 16},
	PnmFive:         {"pnm-five", 5},
	PnmNine:         {"pnm-nine", 9},
	KickboxHuman:    {"kickbox-human", 4},
	KickboxQuadarm:  {"kickbox-quadarm", 4},
	KickboxInsect:   {"kickbox-insect", 6},
	KickboxArachnid: {"kickbox-arachnid", 8},
}

// KeyCount returns the number of keys of the gamemode.
func (g Gamemode) KeyCount() int {
	return gamemodeInfo[g].keyCount
}

// ID returns the stable string id of the gamemode (eg. "pump-single").
func (g Gamemode) ID() string {
	return gamemodeInfo[g].id
}

func (g Gamemode) String() string {
	return g.ID()
}

// UnmarshalYAML decodes a gamemode from its string id.
func (g *Gamemode) UnmarshalYAML(value *yaml.Node) error {
	var id string
	if err := value.Decode(&id); err != nil {
		return err
	}
	parsed, err := ParseGamemode(id)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalYAML encodes a gamemode as its string id.
func (g Gamemode) MarshalYAML() (any, error) {
	return g.ID(), nil
}

// ParseGamemode looks up a gamemode by its string id.
func ParseGamemode(id string) (Gamemode, error) {
	for g, info := range gamemodeInfo {
		if info.id == id {
			return Gamemode(g), nil
		}
	}
	return 0, fmt.Errorf("unknown gamemode %q", id)
}

// ManiaGamemode returns the gamemode conventionally used for a plain
// keycount-N chart, for sources that only carry a keycount.
func ManiaGamemode(keyCount int) (Gamemode, error) {
	switch keyCount {
	case 3:
		return DanceThreepanel, nil
	case 4:
		return DanceSingle, nil
	case 5:
		return PumpSingle, nil
	case 6:
		return DanceSolo, nil
	case 7:
		return Kb7Single, nil
	case 8:
		return DanceDouble, nil
	case 9:
		return PnmNine, nil
	case 10:
		return PumpDouble, nil
	case 12:
		return BmDouble5, nil
	case 16:
		return BmDouble7, nil
	default:
		return 0, fmt.Errorf("no gamemode with %d keys", keyCount)
	}
}
