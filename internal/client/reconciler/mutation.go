package reconciler

import (
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
)

type MutationKind int

const (
	AddEntry MutationKind = iota + 1
	UpdateEntry
	DeleteEntry
	ToggleFavorite
)

func (k MutationKind) String() string {
	switch k {
	case AddEntry:
		return "add"
	case UpdateEntry:
		return "update"
	case DeleteEntry:
		return "delete"
	case ToggleFavorite:
		return "toggle_favorite"
	default:
		return fmt.Sprintf("mutation(%d)", int(k))
	}
}

// Mutation is one local change to the vault document. Entry is used by
// AddEntry and UpdateEntry; ID by DeleteEntry and ToggleFavorite.
type Mutation struct {
	Kind  MutationKind
	Entry vaultx.Entry
	ID    string
}

func Add(e vaultx.Entry) Mutation    { return Mutation{Kind: AddEntry, Entry: e} }
func Update(e vaultx.Entry) Mutation { return Mutation{Kind: UpdateEntry, Entry: e, ID: e.ID} }
func Delete(id string) Mutation      { return Mutation{Kind: DeleteEntry, ID: id} }
func Toggle(id string) Mutation      { return Mutation{Kind: ToggleFavorite, ID: id} }
