package cli

import (
	"fmt"
	"strconv"

	"github.com/nbelyaev/libri/internal/catalog"
)

// lookupDocument resolves a command-line id argument to a catalog document.
func lookupDocument(store *catalog.Store, idArg string) (*catalog.Document, error) {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q", idArg)
	}
	doc, err := store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %d not found", id)
	}
	return doc, nil
}
