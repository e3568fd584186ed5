package internal

import (
	"context"
	"fmt"

	"github.com/starford/slipbox/internal/noteservice"
)

// Info prints the note with the given id, its tags, links and citations as YAML.
func (a *App) Info(ctx context.Context, id int) error {
	info, err := noteservice.NewService(a.db).Info(ctx, id)
	if err != nil {
		return err
	}
	out, err := info.YAML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.stdout, out)
	return err
}
