package internal

import (
	"context"
	"fmt"

	"github.com/starford/slipbox/internal/noteservice"
)

// New prints n unused note ids separated by commas.
func (a *App) New(ctx context.Context, n int) error {
	ids, err := noteservice.NewService(a.db).SuggestIDs(ctx, n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, noteservice.JoinIDs(ids))
	return err
}
