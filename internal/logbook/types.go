package logbook

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Rank is the pilot's career rank. The on-disk representation is an int32
// holding the ordinal; anything outside the seven defined values is invalid.
type Rank int32

const (
	SecondLt Rank = iota
	Lieutenant
	Captain
	Major
	LtColonel
	Colonel
	BrigadierGeneral
	rankCount
)

var rankNames = [rankCount]string{
	"SecondLt",
	"Lieutenant",
	"Captain",
	"Major",
	"LtColonel",
	"Colonel",
	"BrigadierGeneral",
}

func (r Rank) valid() bool { return r >= 0 && r < rankCount }

func (r Rank) String() string {
	if !r.valid() {
		return fmt.Sprintf("Rank(%d)", int32(r))
	}
	return rankNames[r]
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("%d isn't a valid rank index", int32(r))
	}
	return []byte(rankNames[r]), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range rankNames {
		if n == name {
			*r = Rank(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", name)
}

func (r Rank) MarshalYAML() (interface{}, error) {
	b, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Rank) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(name))
}

// Medal identifies one of the six decorations the game awards. The order of
// the constants is the order of the flag bytes on disk; it is part of the wire
// contract.
type Medal int

const (
	AirForceCross Medal = iota
	SilverStar
	DistinguishedFlyingCross
	AirMedal
	KoreaCampaign
	Longevity
	medalCount
)

var medalNames = [medalCount]string{
	"AirForceCross",
	"SilverStar",
	"DistinguishedFlyingCross",
	"AirMedal",
	"KoreaCampaign",
	"Longevity",
}

func (m Medal) String() string {
	if m < 0 || m >= medalCount {
		return fmt.Sprintf("Medal(%d)", int(m))
	}
	return medalNames[m]
}

// MedalSet is the set of earned medals, one bit per Medal ordinal.
type MedalSet uint8

func (s MedalSet) Has(m Medal) bool { return s&(1<<uint(m)) != 0 }
func (s *MedalSet) Add(m Medal)     { *s |= 1 << uint(m) }
func (s MedalSet) Empty() bool      { return s == 0 }

// Medals lists the earned medals in enumeration order.
func (s MedalSet) Medals() []Medal {
	out := make([]Medal, 0, medalCount)
	for m := Medal(0); m < medalCount; m++ {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s MedalSet) names() []string {
	medals := s.Medals()
	out := make([]string, len(medals))
	for i, m := range medals {
		out[i] = m.String()
	}
	return out
}

func (s *MedalSet) setNames(names []string) error {
	var set MedalSet
next:
	for _, name := range names {
		for i, n := range medalNames {
			if n == name {
				set.Add(Medal(i))
				continue next
			}
		}
		return fmt.Errorf("unknown medal %q", name)
	}
	*s = set
	return nil
}

func (s MedalSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.names())
}

func (s *MedalSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	return s.setNames(names)
}

func (s MedalSet) MarshalYAML() (interface{}, error) {
	return s.names(), nil
}

func (s *MedalSet) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return err
	}
	return s.setNames(names)
}

// DogfightStats mirrors the 16-byte dogfight block: eight contiguous
// little-endian int16 counters in declared order.
type DogfightStats struct {
	MatchesWon              int16 `json:"matchesWon" yaml:"matchesWon"`
	MatchesLost             int16 `json:"matchesLost" yaml:"matchesLost"`
	MatchesWonVersusHumans  int16 `json:"matchesWonVersusHumans" yaml:"matchesWonVersusHumans"`
	MatchesLostVersusHumans int16 `json:"matchesLostVersusHumans" yaml:"matchesLostVersusHumans"`
	Kills                   int16 `json:"kills" yaml:"kills"`
	Killed                  int16 `json:"killed" yaml:"killed"`
	HumanKills              int16 `json:"humanKills" yaml:"humanKills"`
	KilledVersusHumans      int16 `json:"killedVersusHumans" yaml:"killedVersusHumans"`
}

// CampaignStats mirrors the 38-byte campaign block. Declaration order is the
// wire order; the two int32 scores sit between contiguous int16 runs.
type CampaignStats struct {
	GamesWon                      int16 `json:"gamesWon" yaml:"gamesWon"`
	GamesLost                     int16 `json:"gamesLost" yaml:"gamesLost"`
	GamesTied                     int16 `json:"gamesTied" yaml:"gamesTied"`
	Missions                      int16 `json:"missions" yaml:"missions"`
	TotalScore                    int32 `json:"totalScore" yaml:"totalScore"`
	TotalMissionScore             int32 `json:"totalMissionScore" yaml:"totalMissionScore"`
	ConsecutiveMissions           int16 `json:"consecutiveMissions" yaml:"consecutiveMissions"`
	Kills                         int16 `json:"kills" yaml:"kills"`
	Killed                        int16 `json:"killed" yaml:"killed"`
	HumanKills                    int16 `json:"humanKills" yaml:"humanKills"`
	KilledVersusHumans            int16 `json:"killedVersusHumans" yaml:"killedVersusHumans"`
	SelfKills                     int16 `json:"selfKills" yaml:"selfKills"`
	AirToGroundKills              int16 `json:"airToGroundKills" yaml:"airToGroundKills"`
	StaticKills                   int16 `json:"staticKills" yaml:"staticKills"`
	NavalKills                    int16 `json:"navalKills" yaml:"navalKills"`
	FriendlyKills                 int16 `json:"friendlyKills" yaml:"friendlyKills"`
	MissionsSinceLastFriendlyKill int16 `json:"missionsSinceLastFriendlyKill" yaml:"missionsSinceLastFriendlyKill"`
}

// Logbook is the decoded pilot career record.
type Logbook struct {
	Name          string        `json:"name" yaml:"name"`
	Callsign      string        `json:"callsign" yaml:"callsign"`
	Password      string        `json:"password" yaml:"password"`
	Commissioned  string        `json:"commissioned" yaml:"commissioned"`
	OptionsFile   string        `json:"optionsFile" yaml:"optionsFile"`
	FlightHours   float32       `json:"flightHours" yaml:"flightHours"`
	AceFactor     float32       `json:"aceFactor" yaml:"aceFactor"`
	Rank          Rank          `json:"rank" yaml:"rank"`
	DogfightStats DogfightStats `json:"dogfightStats" yaml:"dogfightStats"`
	CampaignStats CampaignStats `json:"campaignStats" yaml:"campaignStats"`
	Medals        MedalSet      `json:"medals" yaml:"medals"`
	PictureFile   string        `json:"pictureFile" yaml:"pictureFile"`
	PatchFile     string        `json:"patchFile" yaml:"patchFile"`
	PersonalText  string        `json:"personalText" yaml:"personalText"`
	Squadron      string        `json:"squadron" yaml:"squadron"`
	Voice         int16         `json:"voice" yaml:"voice"`
}

// commissionedFormat is the date stamp the game writes into fresh logbooks.
const commissionedFormat = "01/02/2006"

// New returns a freshly commissioned logbook: supplied identity, everything
// else zeroed, commissioned stamped with the current date.
func New(name, callsign, password string) *Logbook {
	return &Logbook{
		Name:         name,
		Callsign:     callsign,
		Password:     password,
		Commissioned: time.Now().Format(commissionedFormat),
		Rank:         SecondLt,
	}
}
