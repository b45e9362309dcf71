package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockberries/airdrop/types"
)

// GenesisAccount is an account endowed at genesis.
type GenesisAccount struct {
	Address string        `json:"address"`
	Balance types.Balance `json:"balance"`
}

// Genesis is the JSON app-state carried in types.GenesisDoc.
type Genesis struct {
	Params   Params           `json:"params"`
	Accounts []GenesisAccount `json:"accounts"`
}

// DefaultGenesis has default parameters and no accounts.
func DefaultGenesis() Genesis {
	return Genesis{Params: DefaultParams()}
}

var ErrInvalidGenesis = errors.New("invalid genesis")

// ParseGenesis decodes raw app-state. Empty input yields DefaultGenesis.
func ParseGenesis(raw []byte) (Genesis, error) {
	if len(raw) == 0 {
		return DefaultGenesis(), nil
	}
	g := DefaultGenesis()
	if err := json.Unmarshal(raw, &g); err != nil {
		return Genesis{}, fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	return g, nil
}

// Build creates the height-0 state for chainID. Every account is
// endowed with freshly issued balance, so total issuance starts at the
// sum of all genesis balances.
func (g Genesis) Build(chainID string) (*State, []types.Event, error) {
	s := New(chainID, g.Params)
	events := make([]types.Event, 0, len(g.Accounts))
	seen := make(map[types.AccountID]struct{}, len(g.Accounts))
	for _, ga := range g.Accounts {
		who, err := types.ParseAccountID(ga.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
		}
		if _, dup := seen[who]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate account %s", ErrInvalidGenesis, who)
		}
		seen[who] = struct{}{}
		if err := s.Bank.Endow(who, ga.Balance); err != nil {
			return nil, nil, fmt.Errorf("%w: endow %s: %w", ErrInvalidGenesis, who, err)
		}
		events = append(events, types.Event{
			Kind: types.EventEndowed,
			Attributes: []types.EventAttribute{
				types.AccountAttr("who", who),
				types.Uint64Attr("amount", uint64(ga.Balance)),
			},
		})
	}
	// Genesis writes are part of the first commit.
	return s, events, nil
}
