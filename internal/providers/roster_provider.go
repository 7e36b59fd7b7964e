package providers

import (
	"crewboard/internal/models"
	"crewboard/internal/structures"
	"errors"
	"fmt"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

var ErrEmptyRoster = errors.New("roster has no members")

type RosterProviderInterface interface {
	Members() []models.Member
	Find(name string) (models.Member, bool)
	// StatisticsHandles lists the GitHub handles in roster order.
	StatisticsHandles() []string
}

type rosterFile struct {
	Members []models.Member `yaml:"members"`
}

// RosterProvider holds the static member list. It is read once and never
// mutated afterwards, so readers need no locking.
type RosterProvider struct {
	members []models.Member
	byName  map[string]int
}

func (rp *RosterProvider) Members() []models.Member {
	out := make([]models.Member, len(rp.members))
	copy(out, rp.members)
	return out
}

func (rp *RosterProvider) Find(name string) (models.Member, bool) {
	idx, ok := rp.byName[name]
	if !ok {
		return models.Member{}, false
	}
	return rp.members[idx], true
}

func (rp *RosterProvider) StatisticsHandles() []string {
	handles := make([]string, 0, len(rp.members))
	for _, m := range rp.members {
		if m.HasStatistics() {
			handles = append(handles, m.Github)
		}
	}
	return handles
}

func NewRosterProvider(conf *structures.Config, logger Logger) (RosterProviderInterface, error) {
	v := viper.New()
	v.SetConfigFile(conf.Roster.Path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", conf.Roster.Path, err)
	}

	var file rosterFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	rp, err := NewStaticRoster(file.Members)
	if err != nil {
		return nil, err
	}
	logger.Infof(TypeApp, "Roster loaded: %d members, %d with statistics", len(file.Members), len(rp.StatisticsHandles()))
	return rp, nil
}

// NewStaticRoster validates members and builds a roster from them.
func NewStaticRoster(members []models.Member) (RosterProviderInterface, error) {
	if len(members) == 0 {
		return nil, ErrEmptyRoster
	}

	rp := &RosterProvider{
		members: make([]models.Member, 0, len(members)),
		byName:  make(map[string]int, len(members)),
	}
	for i := range members {
		m := members[i]
		if err := validateMember(&m); err != nil {
			return nil, fmt.Errorf("roster member #%d: %w", i, err)
		}
		if _, dup := rp.byName[m.Name]; dup {
			return nil, fmt.Errorf("roster member #%d: duplicate name %q", i, m.Name)
		}
		rp.byName[m.Name] = len(rp.members)
		rp.members = append(rp.members, m)
	}
	return rp, nil
}

func validateMember(m *models.Member) error {
	v := validate.Struct(m)
	if !v.Validate() {
		return errors.New(v.Errors.One())
	}
	for i := range m.Projects {
		pv := validate.Struct(&m.Projects[i])
		if !pv.Validate() {
			return fmt.Errorf("project %q: %s", m.Projects[i].Name, pv.Errors.One())
		}
		if !m.Projects[i].Type.Valid() {
			return fmt.Errorf("project %q: unknown type %q", m.Projects[i].Name, m.Projects[i].Type)
		}
	}
	return nil
}
